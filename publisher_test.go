package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoster accepts posts unless their title is listed in fail
type fakePoster struct {
	fail   map[string]bool
	posts  []*Post
	nextID int64
}

func (f *fakePoster) NewPost(ctx context.Context, post *Post) (int64, error) {
	if f.fail[post.Title] {
		return 0, &XMLRPCFault{Code: 401, Message: "Sorry, you are not allowed to publish posts"}
	}
	f.posts = append(f.posts, post)
	f.nextID++
	return 100 + f.nextID, nil
}

func testPublisherSettings() PublisherSettings {
	return PublisherSettings{
		DefaultCategories: []string{"AI Tools"},
		DefaultStatus:     "draft",
	}
}

func TestPublishRunMixedResults(t *testing.T) {
	store := newTestStore(t)
	good := filepath.Join(store.Dir(), "a_final.md")
	bad := filepath.Join(store.Dir(), "b_final.md")
	writeArticle(t, good, "---\ntitle: Good\n---\n# Good\n")
	writeArticle(t, bad, "---\ntitle: Bad\n---\n# Bad\n")
	writeArticle(t, filepath.Join(store.Dir(), "c_review.md"), "draft")

	poster := &fakePoster{fail: map[string]bool{"Bad": true}}
	summary, err := NewPublisher(store, poster, testPublisherSettings()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 1, summary.ErrorCount)
	assert.True(t, summary.Failed())
	require.Len(t, summary.Results, 2)

	assert.NoFileExists(t, good)
	assert.FileExists(t, filepath.Join(store.ProcessedDir(), "a_final.md"))
	assert.FileExists(t, bad)
	assert.NoFileExists(t, filepath.Join(store.ProcessedDir(), "b_final.md"))

	var fault *XMLRPCFault
	assert.True(t, errors.As(summary.Results[1].Error, &fault))
	assert.Nil(t, summary.Results[1].PostID)
	require.NotNil(t, summary.Results[0].PostID)
	assert.Equal(t, int64(101), *summary.Results[0].PostID)
}

func TestPublishRunSingleFailureLeavesFile(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "only_final.md")
	writeArticle(t, path, "# Only\n")

	poster := &fakePoster{fail: map[string]bool{"Only": true}}
	summary, err := NewPublisher(store, poster, testPublisherSettings()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.SuccessCount)
	assert.Equal(t, 1, summary.ErrorCount)
	assert.FileExists(t, path)
}

func TestPublishRunNothingToDo(t *testing.T) {
	store := newTestStore(t)
	writeArticle(t, filepath.Join(store.ProcessedDir(), "old_final.md"), "# Old\n")

	poster := &fakePoster{}
	summary, err := NewPublisher(store, poster, testPublisherSettings()).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, summary.Results)
	assert.False(t, summary.Failed())
	assert.Empty(t, poster.posts)
}

func TestPublishRunRespectsLock(t *testing.T) {
	store := newTestStore(t)
	writeArticle(t, filepath.Join(store.Dir(), "a_final.md"), "# A\n")

	release, err := store.AcquirePublishLock(0)
	require.NoError(t, err)
	defer release()

	settings := testPublisherSettings()
	settings.LockTimeout = 0
	_, err = NewPublisher(store, &fakePoster{}, settings).Run(context.Background())
	assert.ErrorIs(t, err, ErrPublishLocked)
}

func TestPublishArchiveFailureIsWarning(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "a_final.md")
	writeArticle(t, path, "# A\n")
	// A regular file where the processed directory belongs makes the move fail.
	writeArticle(t, store.ProcessedDir(), "not a directory")

	summary, err := NewPublisher(store, &fakePoster{}, testPublisherSettings()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 0, summary.ErrorCount)
	require.Len(t, summary.Results, 1)
	assert.Error(t, summary.Results[0].Warning)
	assert.FileExists(t, path)
}

func TestPublishOne(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "a_final.md")
	writeArticle(t, path, "# A\n")

	result, err := NewPublisher(store, &fakePoster{}, testPublisherSettings()).PublishOne(context.Background(), store.Classify(path))
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, filepath.Join(store.ProcessedDir(), "a_final.md"), result.ProcessedPath)
	assert.NoFileExists(t, filepath.Join(store.Dir(), publishLockName))
}

func TestBuildPost(t *testing.T) {
	store := newTestStore(t)
	p := NewPublisher(store, &fakePoster{}, testPublisherSettings())

	tests := []struct {
		name       string
		filename   string
		content    string
		title      string
		status     string
		categories []string
		tags       []string
	}{
		{
			name:       "front matter wins",
			filename:   "x_final.md",
			content:    "---\ntitle: FM Title\nstatus: publish\ncategories: Writing, Video\ntags: [AI, Review]\n---\n# Heading\n",
			title:      "FM Title",
			status:     "publish",
			categories: []string{"Writing", "Video"},
			tags:       []string{"AI", "Review"},
		},
		{
			name:       "heading when no title",
			filename:   "x_final.md",
			content:    "Intro\n\n# From Heading\n\ntext\n",
			title:      "From Heading",
			status:     "draft",
			categories: []string{"AI Tools"},
			tags:       []string{},
		},
		{
			name:       "file name as last resort",
			filename:   "2024-05-01_cool_tool_final.md",
			content:    "## Only subheadings\n",
			title:      "2024-05-01 cool tool final",
			status:     "draft",
			categories: []string{"AI Tools"},
			tags:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)
			writeArticle(t, path, tt.content)

			post, err := p.BuildPost(path)
			require.NoError(t, err)

			assert.Equal(t, tt.title, post.Title)
			assert.Equal(t, tt.status, post.Status)
			assert.Equal(t, tt.categories, post.Categories)
			assert.Equal(t, tt.tags, post.Tags)
		})
	}
}

func TestBuildPostContentAndMeta(t *testing.T) {
	store := newTestStore(t)
	p := NewPublisher(store, &fakePoster{}, testPublisherSettings())
	path := filepath.Join(t.TempDir(), "a_final.md")
	writeArticle(t, path, "---\ntitle: T\ndescription: Short summary\n---\n\n| Plan | Price |\n|------|-------|\n| Pro | $10 |\n\n```go\nfmt.Println(1)\n```\n")

	post, err := p.BuildPost(path)
	require.NoError(t, err)

	assert.Contains(t, post.Content, "<table>")
	assert.Contains(t, post.Content, `<code class="language-go">`)
	assert.NotContains(t, post.Content, "title: T")
	assert.Equal(t, []CustomField{{Key: "meta_description", Value: "Short summary"}}, post.CustomFields)
}

func TestBuildPostMissingFile(t *testing.T) {
	p := NewPublisher(newTestStore(t), &fakePoster{}, testPublisherSettings())

	_, err := p.BuildPost(filepath.Join(t.TempDir(), "missing_final.md"))

	var publishErr *PublishError
	require.True(t, errors.As(err, &publishErr))
	assert.Equal(t, "reading", publishErr.Stage)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
