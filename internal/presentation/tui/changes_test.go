package tui_test

import (
	"testing"

	"github.com/aretw0/sculpt/internal/presentation/tui"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

var sample = []domain.Change{
	{Op: domain.OpReplace, Path: "count", Value: domain.Int(2)},
	{Op: domain.OpAdd, Path: "tags.0", Value: domain.String("a|b")},
	{Op: domain.OpRemove, Path: "meta"},
	{Op: domain.OpReplace, Path: "", Value: domain.NewRecord()},
}

func TestFormatChanges(t *testing.T) {
	got := tui.FormatChanges(sample, termenv.Ascii)
	assert.Equal(t, "~ count: 2\n+ tags.0: \"a|b\"\n- meta\n~ (root): {}\n", got)
}

func TestFormatChanges_Colored(t *testing.T) {
	got := tui.FormatChanges(sample[:1], termenv.ANSI)
	assert.Contains(t, got, "\x1b[")
	assert.Contains(t, got, "~ count: 2")
}

func TestChangesMarkdown(t *testing.T) {
	got := tui.ChangesMarkdown("Diff", sample)
	assert.Contains(t, got, "# Diff\n")
	assert.Contains(t, got, "| replace | `count` | `2` |")
	assert.Contains(t, got, "| add | `tags.0` | `\"a\\|b\"` |")
	assert.Contains(t, got, "| remove | `meta` |  |")

	assert.Equal(t, "_No changes._\n", tui.ChangesMarkdown("", nil))
}
