package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	tel := NewScopedAPI("thsr_booker", rec)

	tel.ReportWarning("search.resolve-date", "2024/13/40")
	tel.ReportBroken("booker.extract-ticket")

	require.Equal(t, []string{"thsr_booker: search.resolve-date"}, rec.Ids("warning"))
	require.Equal(t, []string{"thsr_booker: booker.extract-ticket"}, rec.Ids("broken"))
}

func TestInstrumentRestyDump(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	rec := &Recorder{}
	client := resty.New()
	InstrumentResty(client, rec, out)

	_, err = client.R().
		SetContext(context.Background()).
		SetFormData(map[string]string{"a": "1"}).
		Post(server.URL)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "1"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(contents), "---- REQUEST ----"))
	require.Contains(t, string(contents), "a=1")
	require.Contains(t, string(contents), "<html>ok</html>")
	require.Equal(t, []string{report_resty_request, report_resty_response}, rec.Ids("debug"))
}

func TestSetupWithoutExporters(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}
