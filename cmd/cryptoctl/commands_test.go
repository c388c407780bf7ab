package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/Aidin1998/cryptoapi/internal/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `[
  {"_id":"65f0c0ffee","name":"Bitcoin","price":67250.12,"marketCap":1324500000000,"created_at":"2009-01-03T00:00:00Z","createdAt":"2024-05-01T12:00:00Z","updatedAt":"2024-05-02T12:00:00Z"}
]`

func TestExportCmd_StdinToStdout(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(sampleJSON))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"export"})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(crypto.CSVHeader, ","), lines[0])
	assert.Equal(t, "Bitcoin,67250.12,1324500000000,2009-01-03T00:00:00Z,65f0c0ffee,2024-05-01T12:00:00Z,2024-05-02T12:00:00Z", lines[1])
}

func TestExportCmd_Files(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cryptos.json")
	out := filepath.Join(dir, "cryptos.csv")
	require.NoError(t, os.WriteFile(in, []byte(sampleJSON), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"export", "-i", in, "-o", out})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "name,price,marketCap,created_at,_id,createdAt,updatedAt\n"))
}

func TestExportCmd_InvalidJSON(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(`{"oops":`))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"export"})

	assert.Error(t, cmd.Execute())
}

func TestWriteFile_ReportsCloseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	err := writeFile(path, func(w io.Writer) error {
		// closing early makes the deferred close fail
		return w.(*os.File).Close()
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close")
}

func TestWriteFile_WriteErrorWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	writeErr := errors.New("disk full")

	err := writeFile(path, func(io.Writer) error { return writeErr })
	assert.ErrorIs(t, err, writeErr)
}

func TestExportCmd_UnwritableOutput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(sampleJSON))
	cmd.SetArgs([]string{"export", "-o", filepath.Join(t.TempDir(), "missing", "out.csv")})

	assert.Error(t, cmd.Execute())
}

func TestSeedCmd_SQLite(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", ":memory:")
	t.Setenv("DB_CONNECT_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "error")

	seedData, err := crypto.SeedData()
	require.NoError(t, err)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "deleted 0")
	assert.Contains(t, out.String(), "inserted "+strconv.Itoa(len(seedData)))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
