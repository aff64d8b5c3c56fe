package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeInputFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.csv")
	require.NoError(t, os.WriteFile(path, []byte("a@example.org\n"), 0o600))
	return path
}

func TestUploadSendsMultipartAndReturnsTaskID(t *testing.T) {
	var gotFields map[string]string
	var gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{}
		for name, vals := range r.MultipartForm.Value {
			gotFields[name] = vals[0]
		}
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotFile = header.Filename
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task_id":"t-123"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	taskID, err := c.Upload(context.Background(), writeInputFile(t), SubmitOptions{
		TimeoutSeconds:  10,
		CheckSMTP:       true,
		SeparateInvalid: true,
		MaxEmails:       500,
	})
	require.NoError(t, err)
	require.Equal(t, "t-123", taskID)
	require.Equal(t, "emails.csv", gotFile)
	require.Equal(t, map[string]string{
		"timeout":          "10",
		"check_smtp":       "true",
		"separate_invalid": "true",
		"max_emails":       "500",
	}, gotFields)
}

func TestUploadOmitsMaxEmailsWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.NotContains(t, r.MultipartForm.Value, "max_emails")
		_, _ = w.Write([]byte(`{"task_id":"t-1"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Upload(context.Background(), writeInputFile(t), SubmitOptions{TimeoutSeconds: 10})
	require.NoError(t, err)
}

func TestUploadServerErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unsupported file format"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Upload(context.Background(), writeInputFile(t), SubmitOptions{TimeoutSeconds: 10})
	var uerr *UploadError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, "unsupported file format", uerr.Message)
}

func TestUploadTransportFailureUsesFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	_, err := New(srv.URL).Upload(context.Background(), writeInputFile(t), SubmitOptions{TimeoutSeconds: 10})
	var uerr *UploadError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, "upload failed", uerr.Message)
}

func TestStatusDecodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/status/t-9", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"running","progress":30,"message":"working","current_file":"emails.csv","processed":3,"total":10,"eta_seconds":45}`))
	}))
	defer srv.Close()

	st, err := New(srv.URL).Status(context.Background(), "t-9")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, st.Status)
	require.Equal(t, 30.0, st.Progress)
	require.Equal(t, 3, st.Processed)
	require.Equal(t, 10, st.Total)
	require.NotNil(t, st.ETASeconds)
	require.Equal(t, 45.0, *st.ETASeconds)
}

func TestStatusNullETA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending","eta_seconds":null}`))
	}))
	defer srv.Close()

	st, err := New(srv.URL).Status(context.Background(), "t-9")
	require.NoError(t, err)
	require.Nil(t, st.ETASeconds)
}

func TestStatusNonOKIsPollError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"task not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Status(context.Background(), "gone")
	var perr *PollError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "task not found", perr.Message)
}

func TestStatusGarbageBodyIsPollError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Status(context.Background(), "t-9")
	var perr *PollError
	require.True(t, errors.As(err, &perr))
}

func TestDownloadUsesContentDispositionFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/download/t-9", r.URL.Path)
		w.Header().Set("Content-Disposition", `attachment; filename="validated_t-9.xlsx"`)
		_, _ = w.Write([]byte("binary-result"))
	}))
	defer srv.Close()

	data, filename, err := New(srv.URL).Download(context.Background(), "t-9")
	require.NoError(t, err)
	require.Equal(t, "validated_t-9.xlsx", filename)
	require.Equal(t, []byte("binary-result"), data)
}

func TestDownloadFallbackFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("binary-result"))
	}))
	defer srv.Close()

	_, filename, err := New(srv.URL).Download(context.Background(), "t-9")
	require.NoError(t, err)
	require.Equal(t, DefaultResultFilename, filename)
}

func TestDownloadErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"task is not finished yet"}`))
	}))
	defer srv.Close()

	_, _, err := New(srv.URL).Download(context.Background(), "t-9")
	var derr *DownloadError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, "task is not finished yet", derr.Message)
}

func TestFilenameFromHeaderVariants(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{`attachment; filename="report.xlsx"`, "report.xlsx"},
		{`attachment; filename=report.xlsx`, "report.xlsx"},
		{`attachment`, DefaultResultFilename},
		{``, DefaultResultFilename},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, filenameFromHeader(tc.header), tc.header)
	}
}
