package service

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/cloneval/domain"
)

func TestFileOutputWriter_Writer(t *testing.T) {
	var status, out bytes.Buffer
	w := NewFileOutputWriter(&status)

	err := w.Write(&out, "", domain.OutputFormatText, func(dst io.Writer) error {
		_, err := io.WriteString(dst, "report")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "report", out.String())
	assert.Empty(t, status.String())
}

func TestFileOutputWriter_File(t *testing.T) {
	var status bytes.Buffer
	path := filepath.Join(t.TempDir(), "reports", "run.json")

	err := NewFileOutputWriter(&status).Write(nil, path, domain.OutputFormatJSON, func(dst io.Writer) error {
		_, err := io.WriteString(dst, "{}")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
	assert.Contains(t, status.String(), "JSON report generated: "+path)
}

func TestFileOutputWriter_WriteFuncError(t *testing.T) {
	var out bytes.Buffer
	err := NewFileOutputWriter(io.Discard).Write(&out, "", domain.OutputFormatCSV, func(io.Writer) error {
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeOutputError))
}

func TestProgressManager_NonInteractive(t *testing.T) {
	t.Setenv("CI", "true")
	pm := NewProgressManager("")
	assert.False(t, pm.IsInteractive())

	var buf bytes.Buffer
	pm.SetWriter(&buf)
	pm.Initialize(10)
	pm.Start()
	pm.Update(5, 10)
	pm.Complete(true)
	pm.Close()
	assert.Empty(t, buf.String())
}
