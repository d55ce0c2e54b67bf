//go:build unix

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/cloneval/domain"
)

func writeDetector(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "detector.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

func TestEvaluationService_RealDetector(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	script := writeDetector(t, dir, `
echo "file1,start1,end1,file2,start2,end2"
echo "$1/A.java,1,10,$1/B.java,1,10"
echo "A.java,1,10,Unknown.java,1,10"`)

	req := testRequest(dir, corpus, ref, 0)
	req.Tool.Command = []string{script, "{corpus}"}

	resp, err := NewEvaluationService(nil, nil).Evaluate(context.Background(), req)
	require.NoError(t, err)

	res := resp.Result
	assert.Equal(t, 1, res.ReportedPairs)
	assert.Equal(t, 1, res.UnmappedPairs)
	assert.Equal(t, 1, res.Stratum(domain.Type1).TruePositives)
	assert.InDelta(t, 1.0/3.0, res.Stratum(domain.Type1).RecallEstimate.Value, 1e-9)
}

func TestEvaluationService_DetectorTimeout(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	script := writeDetector(t, dir, `
echo "A.java,1,10,B.java,1,10"
sleep 30`)

	req := testRequest(dir, corpus, ref, 0)
	req.Tool.Command = []string{script}
	req.Tool.TimeoutSeconds = 1

	start := time.Now()
	resp, err := NewEvaluationService(nil, nil).Evaluate(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, domain.HasCode(err, domain.ErrCodeToolTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
