package seed

import (
	"aptitude_backend/internal/model"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	tests     []*model.AptitudeTest
	questions [][]model.TestQuestion
	err       error
}

func (s *recordingStore) UpsertTest(ctx context.Context, test *model.AptitudeTest, questions []model.TestQuestion) error {
	if s.err != nil {
		return s.err
	}
	s.tests = append(s.tests, test)
	s.questions = append(s.questions, questions)
	return nil
}

const validSeed = `
tests:
  - id: t-1
    name: Logical Reasoning
    collegeId: c-1
    college: Hill College
    duration: 45
    passingScore: 50
    instructions: ["Answer everything"]
    questions:
      - question: "Odd one out?"
        options:
          - { text: "2", isCorrect: false }
          - { text: "9", isCorrect: true }
      - question: "Next: 1, 1, 2, 3, ?"
        options:
          - { text: "4", isCorrect: false }
          - { text: "5", isCorrect: true }
`

func TestParseAndConvert(t *testing.T) {
	f, err := Parse([]byte(validSeed))
	require.NoError(t, err)
	require.Len(t, f.Tests, 1)

	test, qs := f.Tests[0].ToModels()
	require.Equal(t, "t-1", test.ID)
	require.Equal(t, "Hill College", test.CollegeName)
	require.Equal(t, 45, test.Duration)
	require.True(t, test.IsPublished)
	require.Equal(t, []string{"Answer everything"}, test.Instructions)

	require.Len(t, qs, 2)
	require.Equal(t, "t-1", qs[0].TestID)
	require.Equal(t, 1, qs[0].Order)
	require.Equal(t, 1, qs[1].CorrectIndex())
}

func TestParseRejectsBadQuestions(t *testing.T) {
	cases := map[string]string{
		"missing id": `
tests:
  - name: X
    duration: 10`,
		"zero duration": `
tests:
  - id: a
    name: X
    duration: 0`,
		"single option": `
tests:
  - id: a
    name: X
    duration: 10
    questions:
      - question: q
        options:
          - { text: "only", isCorrect: true }`,
		"two correct": `
tests:
  - id: a
    name: X
    duration: 10
    questions:
      - question: q
        options:
          - { text: "a", isCorrect: true }
          - { text: "b", isCorrect: true }`,
		"not yaml": "tests: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validSeed), 0o600))

	store := &recordingStore{}
	n, err := LoadFile(context.Background(), store, path)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, store.questions[0], 2)

	store.err = errors.New("db down")
	_, err = LoadFile(context.Background(), store, path)
	require.ErrorIs(t, err, store.err)

	_, err = LoadFile(context.Background(), store, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExampleSeedIsValid(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "configs", "seed.example.yaml"))
	require.NoError(t, err)

	f, err := Parse(data)
	require.NoError(t, err)
	require.NotEmpty(t, f.Tests)
}
