package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/golocalevents/internal/domain"
)

const bundled = `{"events":[
 {"id":1,"title":"Jazz Night","description":"Live music","type":"Music","date":"2025-10-03","location":"Blue Note, Springfield","attendees":4},
 {"id":2,"title":"Book Club","description":"Reading","type":"Meetup","date":"2025-09-20","location":"Library, Shelbyville","attendees":0}
]}`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(src, []byte(bundled), 0o644))

	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("DATA_DIR", filepath.Join(dir, "var"))
	t.Setenv("EVENTS_SOURCE", src)
	t.Setenv("IMAGE_CATALOG", filepath.Join(dir, "missing-images.json"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Jazz Night")
	assert.Contains(t, out, "Book Club")

	out, err = run(t, "list", "--search", "MUSIC", "--type", "any")
	require.NoError(t, err)
	assert.Contains(t, out, "Jazz Night")
	assert.NotContains(t, out, "Book Club")

	out, err = run(t, "list", "--location", "nowhere")
	require.NoError(t, err)
	assert.Contains(t, out, "no events match")
}

func TestList_JSONResolvesImages(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "list", "--json")
	require.NoError(t, err)
	var events []domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.NotEmpty(t, ev.ImageURL)
	}
}

func TestList_Limit(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "list", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Jazz Night")
	assert.NotContains(t, out, "Book Club")

	_, err = run(t, "list", "--limit", "-1")
	assert.ErrorContains(t, err, "--limit")
}

func TestList_BadStartDate(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "list", "--start-date", "someday")
	assert.ErrorContains(t, err, "--start-date")
}

func TestCreateShowRsvp_PersistAcrossRuns(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "create",
		"--title", "Picnic", "--description", "Bring a blanket", "--type", "Meetup",
		"--date", "2025-10-01", "--city", "Springfield", "--address", "12 Elm St", "--host", "Marge")
	require.NoError(t, err)
	var created domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, 3, created.ID)

	out, err = run(t, "rsvp", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "1 attending")

	out, err = run(t, "show", " 3 ")
	require.NoError(t, err)
	var shown domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "Picnic", shown.Title)
	assert.Equal(t, 1, shown.Attendees)
	assert.True(t, shown.IsRsvped)
}

func TestCreate_ValidationError(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "create", "--title", "Half")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestShow_Errors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "show", "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidEventID)

	_, err = run(t, "show", "99")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestStorageFlag(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "--storage", "sqlite", "list")
	assert.ErrorContains(t, err, "STORAGE_BACKEND")

	// memory storage does not survive the process
	_, err = run(t, "--storage", "memory", "rsvp", "1")
	require.NoError(t, err)
	out, err := run(t, "--storage", "memory", "show", "1")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"attendees": 4`), out)
}

func TestLoadFailure(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("EVENTS_SOURCE", filepath.Join(dir, "absent.json"))

	_, err := run(t, "list")
	var lerr *domain.LoadError
	assert.ErrorAs(t, err, &lerr)
}
