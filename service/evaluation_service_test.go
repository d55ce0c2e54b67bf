package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/adapter"
)

const testCorpus = `path,start,end
A.java,1,10
B.java,1,10
C.java,1,10
D.java,1,10
`

const testReference = `pairs:
  - {a: "A.java:1-10", b: "B.java:1-10", type: T1, judgment: true}
  - {a: "A.java:1-10", b: "C.java:1-10", type: T1, judgment: true}
  - {a: "B.java:1-10", b: "C.java:1-10", type: T1, judgment: true}
`

// stubAdapter reports fixed location pairs, resolving them like the real
// runner does.
type stubAdapter struct {
	resolver adapter.FragmentResolver
	pairs    [][2]domain.FragmentLocation
	err      error
}

func (s *stubAdapter) Run(ctx context.Context, cfg domain.ToolConfig) (*domain.ToolOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := &domain.ToolOutput{RawRecords: len(s.pairs), Duration: time.Millisecond}
	for _, p := range s.pairs {
		a, okA := s.resolver.Resolve(p[0], cfg.LineTolerance)
		b, okB := s.resolver.Resolve(p[1], cfg.LineTolerance)
		if !okA || !okB {
			out.Unmapped = append(out.Unmapped, domain.UnmappedPair{First: p[0], Second: p[1], Reason: "unresolved"})
			continue
		}
		key, ok := domain.NewPairKey(a, b)
		if !ok {
			out.SelfPairs++
			continue
		}
		out.Pairs = append(out.Pairs, domain.ReportedPair{Key: key})
	}
	return out, nil
}

func loc(p string) domain.FragmentLocation {
	return domain.FragmentLocation{Path: p, StartLine: 1, EndLine: 10}
}

func writeFixtures(t *testing.T, reference string) (dir, corpus, ref string) {
	t.Helper()
	dir = t.TempDir()
	corpus = filepath.Join(dir, "corpus.csv")
	ref = filepath.Join(dir, "reference.yaml")
	require.NoError(t, os.WriteFile(corpus, []byte(testCorpus), 0o644))
	require.NoError(t, os.WriteFile(ref, []byte(reference), 0o644))
	return dir, corpus, ref
}

func testRequest(dir, corpus, ref string, budget int) domain.EvaluationRequest {
	req := domain.DefaultEvaluationRequest()
	req.CorpusIndexPath = corpus
	req.CorpusRoot = dir
	req.ReferencePath = ref
	req.Tool.Name = "stub"
	req.Tool.Command = []string{"stub-detector"}
	req.Tool.WorkingDir = dir
	req.Sampling.Seed = domain.Uint64Ptr(42)
	req.Sampling.SampleSize = 10
	req.Sampling.MinClasses = 1
	req.Oracle.EscalationBudget = domain.IntPtr(budget)
	req.MaxWorkers = 2
	return *req
}

func stubbedService(pairs ...[2]domain.FragmentLocation) *EvaluationServiceImpl {
	svc := NewEvaluationService(nil, nil)
	svc.newAdapter = func(resolver adapter.FragmentResolver, _ *slog.Logger) domain.ToolAdapter {
		return &stubAdapter{resolver: resolver, pairs: pairs}
	}
	return svc
}

func TestEvaluationService_SingleClassRecall(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	svc := stubbedService([2]domain.FragmentLocation{loc("A.java"), loc("B.java")})

	resp, err := svc.Evaluate(context.Background(), testRequest(dir, corpus, ref, 0))
	require.NoError(t, err)
	require.NotNil(t, resp.Result)

	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "stub", resp.Tool)

	t1 := resp.Result.Stratum(domain.Type1)
	require.NotNil(t, t1)
	assert.Equal(t, 1, t1.TruePositives)
	assert.Equal(t, 0, t1.FalsePositives)
	assert.Equal(t, 1, t1.SampledClasses)
	assert.Equal(t, 3, t1.SampledPairs)
	assert.Equal(t, 1, t1.CoveredPairs)
	require.True(t, t1.RecallEstimate.Computable)
	assert.InDelta(t, 1.0/3.0, t1.RecallEstimate.Value, 1e-9)
	assert.True(t, t1.RecallConfidenceInterval.Contains(t1.RecallEstimate.Value))

	assert.Equal(t, 1.0, resp.Result.Overall.Precision.Value)
	assert.Equal(t, uint64(42), resp.Result.Seed)
}

func TestEvaluationService_UnmappedPair(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	svc := stubbedService(
		[2]domain.FragmentLocation{loc("A.java"), loc("B.java")},
		[2]domain.FragmentLocation{loc("A.java"), loc("Missing.java")},
	)

	resp, err := svc.Evaluate(context.Background(), testRequest(dir, corpus, ref, 0))
	require.NoError(t, err)

	res := resp.Result
	assert.Equal(t, 1, res.UnmappedPairs)
	assert.Equal(t, 1, res.Overall.UnresolvedCount)
	assert.Equal(t, 1, res.Overall.TruePositives)
	assert.Equal(t, 0, res.Overall.FalsePositives)
	assert.Equal(t, 1.0, res.Overall.Precision.Value)
}

func TestEvaluationService_UnknownPairWithoutBudget(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	svc := stubbedService(
		[2]domain.FragmentLocation{loc("A.java"), loc("B.java")},
		[2]domain.FragmentLocation{loc("A.java"), loc("D.java")},
	)

	resp, err := svc.Evaluate(context.Background(), testRequest(dir, corpus, ref, 0))
	require.NoError(t, err)

	res := resp.Result
	assert.Equal(t, 1, res.Overall.TruePositives)
	assert.Equal(t, 0, res.Overall.FalsePositives)
	assert.Equal(t, 1, res.Overall.UnresolvedCount)
	assert.Equal(t, 1.0, res.Overall.Precision.Value)
	assert.Equal(t, 0, res.EscalatedPairs)

	unclassified := res.Stratum(domain.Unclassified)
	require.NotNil(t, unclassified)
	assert.Equal(t, 1, unclassified.UnresolvedCount)
}

func TestEvaluationService_FileOracleEscalation(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	judgments := filepath.Join(dir, "judgments.yaml")
	require.NoError(t, os.WriteFile(judgments, []byte(`pairs:
  - {a: "A.java:1-10", b: "D.java:1-10", type: T2, judgment: false}
`), 0o644))

	svc := stubbedService([2]domain.FragmentLocation{loc("A.java"), loc("D.java")})
	req := testRequest(dir, corpus, ref, 5)
	req.Oracle.Kind = domain.OracleFile
	req.Oracle.Path = judgments

	resp, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)

	res := resp.Result
	assert.Equal(t, 1, res.EscalatedPairs)
	assert.Equal(t, 0, res.Overall.UnresolvedCount)
	assert.Equal(t, 1, res.Overall.FalsePositives)
	assert.Equal(t, 1, res.Stratum(domain.Type2).FalsePositives)
}

func TestEvaluationService_Deterministic(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	svc := stubbedService(
		[2]domain.FragmentLocation{loc("A.java"), loc("B.java")},
		[2]domain.FragmentLocation{loc("C.java"), loc("D.java")},
	)
	req := testRequest(dir, corpus, ref, 0)

	first, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Result, second.Result)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestEvaluationService_MalformedReferenceAborts(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, `pairs:
  - {a: "A.java:1-10", b: "Z.java:1-10", type: T1, judgment: true}
  - {a: "A.java:1-10", b: "B.java:1-10", judgment: true}
`)
	called := false
	svc := NewEvaluationService(nil, nil)
	svc.newAdapter = func(resolver adapter.FragmentResolver, _ *slog.Logger) domain.ToolAdapter {
		called = true
		return &stubAdapter{resolver: resolver}
	}

	resp, err := svc.Evaluate(context.Background(), testRequest(dir, corpus, ref, 0))
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, domain.HasCode(err, domain.ErrCodeMalformedReference))
	assert.Contains(t, err.Error(), "2 invalid reference entries")
	assert.False(t, called, "detector must not run when the reference is malformed")
}

func TestEvaluationService_OracleErrorAbortsBeforeDetector(t *testing.T) {
	tests := []struct {
		name      string
		judgments string
		code      string
	}{
		{name: "missing judgments file", code: domain.ErrCodeFileNotFound},
		{name: "malformed judgments file", judgments: "pairs: [unterminated\n", code: domain.ErrCodeConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, corpus, ref := writeFixtures(t, testReference)
			judgments := filepath.Join(dir, "judgments.yaml")
			if tt.judgments != "" {
				require.NoError(t, os.WriteFile(judgments, []byte(tt.judgments), 0o644))
			}

			called := false
			svc := NewEvaluationService(nil, nil)
			svc.newAdapter = func(resolver adapter.FragmentResolver, _ *slog.Logger) domain.ToolAdapter {
				called = true
				return &stubAdapter{resolver: resolver}
			}

			req := testRequest(dir, corpus, ref, 1)
			req.Oracle.Kind = domain.OracleFile
			req.Oracle.Path = judgments

			resp, err := svc.Evaluate(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.code, domain.CodeOf(err), "got %v", err)
			assert.False(t, called, "detector must not run when the oracle cannot be set up")
		})
	}
}

func TestEvaluationService_ToolErrorAborts(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	svc := NewEvaluationService(nil, nil)
	svc.newAdapter = func(resolver adapter.FragmentResolver, _ *slog.Logger) domain.ToolAdapter {
		return &stubAdapter{err: domain.NewToolTimeoutError("stub-detector", time.Second)}
	}

	resp, err := svc.Evaluate(context.Background(), testRequest(dir, corpus, ref, 0))
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, domain.HasCode(err, domain.ErrCodeToolTimeout))
}

func TestEvaluationService_ValidatesRequest(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	svc := stubbedService()

	tests := []struct {
		name   string
		mutate func(*domain.EvaluationRequest)
		want   string
	}{
		{"missing seed", func(r *domain.EvaluationRequest) { r.Sampling.Seed = nil }, "seed is required"},
		{"missing budget", func(r *domain.EvaluationRequest) { r.Oracle.EscalationBudget = nil }, "escalation_budget is required"},
		{"missing command", func(r *domain.EvaluationRequest) { r.Tool.Command = nil }, "tool command"},
		{"missing reference", func(r *domain.EvaluationRequest) { r.ReferencePath = "" }, "reference path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest(dir, corpus, ref, 0)
			tt.mutate(&req)
			_, err := svc.Evaluate(context.Background(), req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEvaluationService_InspectReference(t *testing.T) {
	dir, corpus, ref := writeFixtures(t, testReference)
	svc := NewEvaluationService(nil, nil)

	summary, err := svc.InspectReference(context.Background(), domain.EvaluationRequest{
		CorpusIndexPath: corpus,
		ReferencePath:   ref,
		CorpusRoot:      dir,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Fragments)
	assert.Equal(t, 3, summary.DeclaredPairs)
	assert.Equal(t, 3, summary.Judgments["true"])
	require.NotEmpty(t, summary.Strata)
	assert.Equal(t, domain.Type1, summary.Strata[0].Type)
	assert.Equal(t, 1, summary.Strata[0].Classes)
	assert.Equal(t, int64(3), summary.Strata[0].KnownPairs)
	assert.Equal(t, 3, summary.Strata[0].LargestClass)

	_, err = svc.InspectReference(context.Background(), domain.EvaluationRequest{CorpusIndexPath: corpus})
	assert.Error(t, err)
}
