package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

const benchmarkCorpus = `path,start,end
A.java,1,10
B.java,1,10
C.java,1,10
D.java,1,10
`

const benchmarkReference = `pairs:
  - {a: "A.java:1-10", b: "B.java:1-10", type: T1, judgment: true}
  - {a: "A.java:1-10", b: "C.java:1-10", type: T1, judgment: true}
  - {a: "B.java:1-10", b: "C.java:1-10", type: T1, judgment: true}
  - {a: "A.java:1-10", b: "D.java:1-10", type: T3, judgment: false}
`

// buildClonevalBinary builds the CLI into a temporary directory
func buildClonevalBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "cloneval")

	// Build from the project root (one level up from e2e directory)
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/cloneval")
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}
	cmd.Dir = projectRoot

	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build cloneval binary: %v\n%s", err, out)
	}
	return binaryPath
}

func writeTestFile(t *testing.T, dir, filename, content string, mode os.FileMode) string {
	t.Helper()

	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), mode); err != nil {
		t.Fatalf("Failed to create test file %s: %v", filename, err)
	}
	return filePath
}

// createBenchmark writes a corpus, a reference, a detector script and a
// .cloneval.toml wiring them together. The detector reports one true and one
// false pair.
func createBenchmark(t *testing.T, seed int) string {
	t.Helper()

	dir := t.TempDir()
	writeTestFile(t, dir, "corpus.csv", benchmarkCorpus, 0644)
	writeTestFile(t, dir, "reference.yaml", benchmarkReference, 0644)
	detector := writeTestFile(t, dir, "detector.sh", `#!/bin/sh
echo "file1,start1,end1,file2,start2,end2"
echo "$1/A.java,1,10,$1/B.java,1,10"
echo "$1/A.java,1,10,$1/D.java,1,10"
`, 0755)

	config := fmt.Sprintf(`[corpus]
index = "corpus.csv"
root = "."

[reference]
path = "reference.yaml"

[tool]
name = "stub"
command = [%q, "{corpus}"]
timeout_seconds = 30

[sampling]
seed = %d
sample_size = 10
min_classes = 1

[oracle]
escalation_budget = 0
`, detector, seed)
	writeTestFile(t, dir, ".cloneval.toml", config, 0644)
	return dir
}
