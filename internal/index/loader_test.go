package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		wantDocs int
		contains []string
		excludes []string
	}{
		{
			name:     "plain text",
			file:     "notes.txt",
			content:  "  hello world  \n",
			wantDocs: 1,
			contains: []string{"hello world"},
		},
		{
			name:     "markdown",
			file:     "README.MD",
			content:  "# Title\n\nBody text.",
			wantDocs: 1,
			contains: []string{"# Title", "Body text."},
		},
		{
			name:     "empty text file",
			file:     "empty.txt",
			content:  "   \n",
			wantDocs: 0,
		},
		{
			name:     "html",
			file:     "page.html",
			content:  `<html><head><title>T</title><script>var x = 1</script></head><body><h1>Heading</h1><p>First   para</p><style>p{}</style><div>Second</div></body></html>`,
			wantDocs: 1,
			contains: []string{"Heading", "First para", "Second"},
			excludes: []string{"var x", "p{}"},
		},
		{
			name:     "unsupported extension",
			file:     "image.png",
			content:  "\x89PNG",
			wantDocs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCorpusFile(t, dir, tt.file, tt.content)

			docs, err := Load(path)
			require.NoError(t, err)
			require.Len(t, docs, tt.wantDocs)

			for _, doc := range docs {
				assert.Equal(t, path, doc.Source)
				for _, s := range tt.contains {
					assert.Contains(t, doc.Text, s)
				}
				for _, s := range tt.excludes {
					assert.NotContains(t, doc.Text, s)
				}
			}
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := writeCorpusFile(t, t.TempDir(), "people.csv", "name,age\nalice,30\nbob,\ncarol,41,extra\n")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "name: alice\nage: 30", docs[0].Text)
	assert.Equal(t, "row 1", docs[0].Location)
	assert.Equal(t, "row 2", docs[1].Location)
	assert.Equal(t, "name: carol\nage: 41\ncolumn3: extra", docs[2].Text)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/file.txt")
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	for _, path := range []string{"a.txt", "b.md", "c.CSV", "d.htm", "e.html", "f.pdf"} {
		assert.True(t, Supported(path), path)
	}
	for _, path := range []string{"a.go", "b", "c.docx"} {
		assert.False(t, Supported(path), path)
	}
}

func TestPageText(t *testing.T) {
	content := strings.Join([]string{
		"BT",
		"/F1 12 Tf",
		"72 712 Td",
		`(Hello \(PDF\)) Tj`,
		"T*",
		"[(Wor) -20 (ld)] TJ",
		"ET",
	}, "\n")

	assert.Equal(t, "Hello (PDF)\nWorld", pageText([]byte(content)))
}

func TestUnescapePDF(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: `plain`, want: "plain"},
		{raw: `a\nb`, want: "a\nb"},
		{raw: `\(x\)`, want: "(x)"},
		{raw: `\101\102`, want: "AB"},
		{raw: `tab\tend\\`, want: "tab\tend\\"},
		{raw: `trailing\`, want: `trailing\`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, unescapePDF([]byte(tt.raw)))
		})
	}
}
