package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/safeprotest/factcheck/internal/model"
)

var (
	badgeBase = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	statusColors = map[model.Status]lipgloss.Color{
		model.StatusVerified:   lipgloss.Color("#A6E3A1"), // Green
		model.StatusUnverified: lipgloss.Color("#F9E2AF"), // Yellow
		model.StatusDisputed:   lipgloss.Color("#FAB387"), // Orange
		model.StatusFalse:      lipgloss.Color("#F38BA8"), // Red
	}

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Width(12)
	claimStyle = lipgloss.NewStyle().Italic(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

// badge renders a verdict as an uppercase colored label
func badge(s model.Status) string {
	style := badgeBase
	if c, ok := statusColors[s]; ok {
		style = style.Foreground(lipgloss.Color("#1E1E2E")).Background(c)
	}
	return style.Render(strings.ToUpper(string(s)))
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), value)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderEvaluation prints an ad-hoc evaluation with its sub-scores
func renderEvaluation(w io.Writer, eval *model.Evaluation) {
	fmt.Fprintf(w, "%s %s\n\n", badge(eval.Result.Status), claimStyle.Render(fmt.Sprintf("%q", eval.Claim)))
	renderResult(w, eval.Result)

	b := eval.Breakdown
	field(w, "Breakdown", fmt.Sprintf("suspicion %.2f · sources %.2f · community %.2f", b.Suspicion, b.SourceReliability, b.Community))
	if len(eval.Keywords) > 0 {
		field(w, "Keywords", strings.Join(eval.Keywords, ", "))
	}
}

func renderResult(w io.Writer, r model.Result) {
	field(w, "Score", fmt.Sprintf("%.2f", r.Score))
	field(w, "Confidence", fmt.Sprintf("%.2f", r.Confidence))
	if len(r.Sources) > 0 {
		field(w, "Sources", strings.Join(r.Sources, ", "))
	} else {
		field(w, "Sources", mutedStyle.Render("none"))
	}
	for i, reason := range r.Reasoning {
		label := ""
		if i == 0 {
			label = "Reasoning"
		}
		field(w, label, "• "+reason)
	}
}

// renderRecord prints a stored record, its previews and its votes
func renderRecord(w io.Writer, rec *model.Record) {
	fmt.Fprintf(w, "%s %s\n\n", badge(rec.Result.Status), claimStyle.Render(fmt.Sprintf("%q", rec.Claim)))
	field(w, "ID", rec.ID)
	if rec.SubmittedBy != "" {
		field(w, "Submitted", fmt.Sprintf("%s by %s", rec.CreatedAt.Format("2006-01-02 15:04"), rec.SubmittedBy))
	} else {
		field(w, "Submitted", rec.CreatedAt.Format("2006-01-02 15:04"))
	}
	renderResult(w, rec.Result)

	for _, info := range rec.SourceInfo {
		var line string
		switch {
		case info.Title != "":
			line = fmt.Sprintf("%s (%s, %s)", info.Source, info.Title, info.Authority)
		case info.Error != "":
			line = fmt.Sprintf("%s (%s)", info.Source, mutedStyle.Render(info.Error))
		default:
			line = fmt.Sprintf("%s (%s)", info.Source, info.Authority)
		}
		field(w, "Preview", line)
	}

	if rec.Votes != nil {
		t := model.TallyVotes(rec.Votes)
		field(w, "Votes", fmt.Sprintf("%d true · %d false · %d disputed", t.True, t.False, t.Disputed))
	}
}

// renderRecordLine prints one row of a listing
func renderRecordLine(w io.Writer, rec *model.Record) {
	fmt.Fprintf(w, "%s %s %.2f  %s\n", rec.ID, badge(rec.Result.Status), rec.Result.Score, truncate(rec.Claim, 72))
}

func renderVotes(w io.Writer, votes []model.CommunityVote) {
	if len(votes) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No votes yet"))
		return
	}
	for _, v := range votes {
		line := fmt.Sprintf("%s %s %s", v.Timestamp.Format("2006-01-02 15:04"), badge(v.Vote.DisplayStatus()), v.VoterID)
		if v.Evidence != "" {
			line += "  " + mutedStyle.Render(v.Evidence)
		}
		fmt.Fprintln(w, line)
	}
	t := model.TallyVotes(votes)
	fmt.Fprintf(w, "\n%d votes: %d true, %d false, %d disputed\n", t.Total(), t.True, t.False, t.Disputed)
}

func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
