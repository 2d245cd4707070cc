package ui

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetColor(false)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetQuietMode(false)
		SetColor(true)
	})
	return &buf
}

func TestPrintFunctions(t *testing.T) {
	buf := captureOutput(t)

	PrintInfo("Photo", "a.jpg")
	PrintSuccess("Posted")
	PrintWarning("Resized copy kept", "/tmp/a.jpg")
	PrintError("Post failed", errors.New("timeout"))
	PrintBlock("Камера: X\nISO: 100")

	assert.Equal(t,
		"Photo: a.jpg\n"+
			"Posted\n"+
			"Resized copy kept: /tmp/a.jpg\n"+
			"Post failed: timeout\n"+
			"    Камера: X\n"+
			"    ISO: 100\n",
		buf.String())
}

func TestQuietModeKeepsErrors(t *testing.T) {
	buf := captureOutput(t)
	SetQuietMode(true)

	PrintLogo()
	PrintInfo("Photo", "a.jpg")
	PrintSuccess("Posted")
	PrintTable([]string{"A"}, [][]string{{"1"}})
	PrintError("Post failed")

	assert.Equal(t, "Post failed\n", buf.String())
}

func TestColors(t *testing.T) {
	SetColor(true)
	assert.Equal(t, "\033[32mok\033[0m", Green("ok"))
	SetColor(false)
	assert.Equal(t, "ok", Green("ok"))
	SetColor(true)
}

func TestPrintTable(t *testing.T) {
	buf := captureOutput(t)

	PrintTable([]string{"COUNT", "PHOTO"}, [][]string{
		{"3", "a.jpg"},
		{"10", "b.jpg"},
	})

	assert.Equal(t, "COUNT  PHOTO\n3      a.jpg\n10     b.jpg\n", buf.String())
}

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func TestNotifier(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{err: errors.New("no notification daemon")}

	n := NewNotifierWithSender(sender)
	n.SendSuccess("Posted", "a.jpg")
	n.SendError("Post failed", "timeout")

	require.Len(t, sender.titles, 2)
	assert.Equal(t, []string{"Posted", "Post failed"}, sender.titles)
	assert.Contains(t, buf.String(), "Posted: a.jpg")
	assert.Contains(t, buf.String(), "Post failed: timeout")

	// a nil sender only prints
	NewNotifierWithSender(nil).SendSuccess("Posted", "b.jpg")
	assert.Contains(t, buf.String(), "Posted: b.jpg")
}

func TestNotifySkipsConsole(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{}

	NewNotifierWithSender(sender).Notify("photopost", "request timed out")

	assert.Equal(t, []string{"photopost"}, sender.titles)
	assert.Empty(t, buf.String())
}

func TestAppleScriptString(t *testing.T) {
	assert.Equal(t, `"say \"hi\" \\ bye"`, appleScriptString(`say "hi" \ bye`))
}
