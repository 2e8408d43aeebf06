package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type smtpConfig struct {
	Server string `json:"server"`
	Port   int    `json:"port"`
}

type testConfig struct {
	BaseUrl    string     `json:"base_url"`
	Timeout    int        `json:"timeout_seconds"`
	PersonalId string     `json:"personal_id"`
	Smtp       smtpConfig `json:"smtp"`
}

func write(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "thsr.local.json5", LocalPath("thsr.json5"))
	require.Equal(t, filepath.Join("a", "b", "c.local.json5"), LocalPath(filepath.Join("a", "b", "c.json5")))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "thsr.json5")
	write(t, name, `{
		// shared settings
		base_url: "https://irs.thsrc.com.tw",
		timeout_seconds: 30,
		smtp: { server: "smtp.example.com", port: 25 },
	}`)
	write(t, LocalPath(name), `{ personal_id: "A123456789", smtp: { port: 587 } }`)

	config, err := ReadConfig(name, testConfig{Timeout: 60})
	require.NoError(t, err)

	expected := testConfig{
		BaseUrl:    "https://irs.thsrc.com.tw",
		Timeout:    30,
		PersonalId: "A123456789",
		Smtp:       smtpConfig{Server: "smtp.example.com", Port: 587},
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadConfigMissingFiles(t *testing.T) {
	defaults := testConfig{BaseUrl: "https://irs.thsrc.com.tw", Timeout: 60}
	config, err := ReadConfig(filepath.Join(t.TempDir(), "thsr.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, config)
}

func TestReadConfigInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "thsr.json5")
	write(t, name, `{ base_url: `)

	_, err := ReadConfig(name, testConfig{})
	require.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	write(t, path, "THSR_CONFIGUTIL_TEST_A=from-file\nTHSR_CONFIGUTIL_TEST_B=from-file\n")

	t.Setenv("THSR_CONFIGUTIL_TEST_B", "from-env")
	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { os.Unsetenv("THSR_CONFIGUTIL_TEST_A") })

	require.Equal(t, "from-file", os.Getenv("THSR_CONFIGUTIL_TEST_A"))
	require.Equal(t, "from-env", os.Getenv("THSR_CONFIGUTIL_TEST_B"))

	value := "config"
	OverrideFromEnv(&value, "THSR_CONFIGUTIL_TEST_B")
	require.Equal(t, "from-env", value)
	OverrideFromEnv(&value, "THSR_CONFIGUTIL_TEST_UNSET")
	require.Equal(t, "from-env", value)
}

func TestFindUpwards(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0700))
	write(t, filepath.Join(root, "thsr.json5"), "{}")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	found := FindUpwards("thsr.json5")
	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	resolvedFound, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(resolvedRoot, "thsr.json5"), resolvedFound)

	require.Equal(t, "does-not-exist.json5", FindUpwards("does-not-exist.json5"))
}
