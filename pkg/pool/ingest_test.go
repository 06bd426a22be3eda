package pool

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

type fakeChatModel struct {
	response string
	err      error
}

func (m *fakeChatModel) Ask(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.response, m.err
}

// fakeEmbedder выдаёт каждому новому тексту свой базисный вектор: одинаковые
// тексты дают одинаковые векторы (cos 1), разные — ортогональные (cos 0).
type fakeEmbedder struct {
	err     error
	vectors map[string][]float32
	calls   int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.vectors == nil {
		e.vectors = map[string][]float32{}
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, 8)
	v[len(e.vectors)%8] = 1
	e.vectors[text] = v
	return v, nil
}

// docxBytes собирает минимальный docx, чтобы прогнать настоящий экстрактор.
func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w:document><w:body>"))
	require.NoError(t, err)
	for _, p := range paragraphs {
		_, err = w.Write([]byte("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>"))
		require.NoError(t, err)
	}
	_, err = w.Write([]byte("</w:body></w:document>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const parsedCVResponse = `{
  "isCv": true,
  "rejectionReason": "",
  "experiences": [
    {"company": "Acme", "roleTitle": "Engineer", "dateStart": "2022-03-01", "isCurrent": true,
     "companyConfidence": 0.9, "datesConfidence": 0.8,
     "bullets": ["Built the billing service"], "skillTags": ["go"]},
    {"company": "", "roleTitle": "Intern", "companyConfidence": 0.3, "datesConfidence": 0.9, "bullets": []}
  ],
  "education": [
    {"institution": "MSU", "degree": "BSc Computer Science", "dateStart": "2018", "dateEnd": "2022", "institutionConfidence": 0.95}
  ],
  "projects": [
    {"name": "cv-tailor", "description": "pet project", "bullets": [{"text": "Wrote the selector"}]}
  ],
  "activities": [
    {"organization": "Chess Club", "roleTitle": "Captain", "organizationConfidence": 0.85, "datesConfidence": 0.9, "bullets": []}
  ],
  "skills": [
    {"name": "Go", "category": "technical"},
    {"name": "go", "category": "technical"},
    {"name": "SQL", "category": "technical"}
  ]
}`

func newTestIngest(repo *memRepo, model *fakeChatModel, embedder *fakeEmbedder) *IngestService {
	d := NewDeduper(repo, 0.75, 0.92)
	return NewIngestService(repo, NewStructurer(model), embedder, d, 0.5)
}

func TestUpload_FullPipeline(t *testing.T) {
	repo := newMemRepo()
	embedder := &fakeEmbedder{}
	svc := newTestIngest(repo, &fakeChatModel{response: parsedCVResponse}, embedder)
	ownerID := uuid.New()

	summary, err := svc.Upload(context.Background(), ownerID, "cv.docx", docxBytes(t, "Resume of a person", "Engineer at Acme"))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Experiences)
	assert.Equal(t, 1, summary.Education)
	assert.Equal(t, 1, summary.Projects)
	assert.Equal(t, 1, summary.Activities)
	assert.Equal(t, 2, summary.Skills, "дубликат навыка Go/go схлопнут по нормализованному имени")
	assert.Equal(t, 1, summary.NeedsReview, "companyConfidence 0.3 ниже порога")

	exps, err := repo.ListExperiencesByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, exps, 2)
	for _, e := range exps {
		if e.Company == "Acme" {
			require.NotNil(t, e.DateStart)
			assert.Equal(t, 2022, e.DateStart.Year())
			assert.True(t, e.IsCurrent)
			assert.Equal(t, []Bullet{{Text: "Built the billing service"}}, e.Bullets)
			assert.NotEmpty(t, e.Embedding)
			assert.False(t, e.NeedsReview)
		} else {
			assert.True(t, e.NeedsReview)
			assert.Equal(t, "low extraction confidence", e.ReviewReason)
		}
	}

	upload, ok := repo.uploads[summary.UploadID]
	require.True(t, ok)
	assert.Equal(t, ParsingComplete, upload.ParsingStatus)
}

func TestUpload_NotACV(t *testing.T) {
	repo := newMemRepo()
	svc := newTestIngest(repo, &fakeChatModel{response: `{"isCv": false, "rejectionReason": "grocery list"}`}, &fakeEmbedder{})
	ownerID := uuid.New()

	_, err := svc.Upload(context.Background(), ownerID, "list.docx", docxBytes(t, "milk, eggs, bread"))
	require.ErrorIs(t, err, ErrNotCV)

	for _, u := range repo.uploads {
		assert.Equal(t, ParsingFailed, u.ParsingStatus)
		assert.Equal(t, "grocery list", u.ParsingNotes)
	}
}

func TestUpload_ModelFailureMarksUpload(t *testing.T) {
	repo := newMemRepo()
	svc := newTestIngest(repo, &fakeChatModel{err: fmt.Errorf("rate limited")}, &fakeEmbedder{})

	_, err := svc.Upload(context.Background(), uuid.New(), "cv.docx", docxBytes(t, "Engineer at Acme"))
	require.Error(t, err)
	for _, u := range repo.uploads {
		assert.Equal(t, ParsingFailed, u.ParsingStatus)
	}
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	svc := newTestIngest(newMemRepo(), &fakeChatModel{response: parsedCVResponse}, &fakeEmbedder{})
	_, err := svc.Upload(context.Background(), uuid.New(), "cv.txt", []byte("plain text"))
	require.Error(t, err)
}

func TestUpload_EmbedderFailureFailsOpen(t *testing.T) {
	repo := newMemRepo()
	embedder := &fakeEmbedder{err: fmt.Errorf("embedding api down")}
	svc := newTestIngest(repo, &fakeChatModel{response: parsedCVResponse}, embedder)
	ownerID := uuid.New()

	summary, err := svc.Upload(context.Background(), ownerID, "cv.docx", docxBytes(t, "Engineer at Acme"))
	require.NoError(t, err, "недоступность эмбеддингов не должна ронять загрузку")
	assert.Equal(t, 2, summary.Experiences)

	exps, err := repo.ListExperiencesByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	for _, e := range exps {
		assert.Nil(t, e.Embedding)
	}
}

func TestUpload_DuplicateSurfacedInSummary(t *testing.T) {
	repo := newMemRepo()
	embedder := &fakeEmbedder{}
	svc := newTestIngest(repo, &fakeChatModel{response: parsedCVResponse}, embedder)
	ownerID := uuid.New()

	first, err := svc.Upload(context.Background(), ownerID, "cv.docx", docxBytes(t, "Engineer at Acme"))
	require.NoError(t, err)
	assert.Empty(t, first.Duplicates)

	// повторная загрузка того же CV: записи с эмбеддингами попадают в
	// существующие группы
	second, err := svc.Upload(context.Background(), ownerID, "cv.docx", docxBytes(t, "Engineer at Acme"))
	require.NoError(t, err)
	assert.NotEmpty(t, second.Duplicates)
	for _, d := range second.Duplicates {
		assert.NotEqual(t, ActionNew, d.Action)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		year int
		ok   bool
	}{
		{"2022-03-01", 2022, true},
		{"2022-03", 2022, true},
		{"2022", 2022, true},
		{"", 0, false},
		{"present", 0, false},
		{"03/2022", 0, false},
	}
	for _, tc := range cases {
		got := ParseDate(tc.in)
		if !tc.ok {
			assert.Nil(t, got, "ParseDate(%q)", tc.in)
			continue
		}
		require.NotNil(t, got, "ParseDate(%q)", tc.in)
		assert.Equal(t, tc.year, got.Year())
	}
}
