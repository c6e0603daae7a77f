package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeprotest/factcheck/internal/model"
)

// run executes the command tree with a private HOME and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	// Flag-bound package vars outlive a single Execute
	checkJSON, submitJSON, showJSON, listJSON, votesJSON, batchJSON = false, false, false, false, false, false
	checkSources, submitSources = nil, nil
	checkExplain, recheckAll = false, false
	submitAs, voteAs, voteEvidence, listQuery = "", "", "", ""
	cfgFile = ""
	viper.Reset()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v, "", reflect.ValueOf(*model.DefaultConfig()))

	assert.Equal(t, "sqlite", v.GetString("store.driver"))
	assert.Equal(t, ":8080", v.GetString("server.addr"))
	assert.Equal(t, 10*time.Second, v.GetDuration("server.read_timeout"))
	assert.Contains(t, v.GetStringSlice("sources.primary_domains"), "gov")
	assert.Equal(t, 4, v.GetInt("workers"))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "factcheck "+Version+"\n", out)
}

func TestConfigShow_EnvOverride(t *testing.T) {
	t.Setenv("FACTCHECK_SCORING_MAX_CLAIM_LENGTH", "280")
	t.Setenv("FACTCHECK_SERVER_JWT_SECRET", "hunter2")

	out, err := run(t, "config", "show", "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "driver: memory")
	assert.Contains(t, out, "max_claim_length: 280")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	_, err := run(t, "config", "init", "--config", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FACTCHECK_")
	assert.Contains(t, string(data), "recheck_on_vote: true")

	_, err = run(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestCheck_JSON(t *testing.T) {
	out, err := run(t, "check", "Main St bridge closed by police", "--source", "reuters.com", "--store", "memory", "--json")
	require.NoError(t, err)

	var got struct {
		Claim  string       `json:"claim"`
		Result model.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Main St bridge closed by police", got.Claim)
	assert.True(t, got.Result.Status.Valid())
	assert.Equal(t, []string{"reuters.com"}, got.Result.Sources)
}

func TestCheck_EmptyClaim(t *testing.T) {
	_, err := run(t, "check", "   ", "--store", "memory")
	assert.ErrorIs(t, err, model.ErrEmptyClaim)
}

func TestCheck_UnknownStore(t *testing.T) {
	_, err := run(t, "check", "anything", "--store", "postgres")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestSubmitVoteShow(t *testing.T) {
	dataDir := t.TempDir()

	out, err := run(t, "submit", "Water station moved to 5th Ave", "--source", "npr.org", "--as", "medic-7", "--store", "sqlite", "--data-dir", dataDir, "--json")
	require.NoError(t, err)

	var rec model.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, "medic-7", rec.SubmittedBy)

	_, err = run(t, "vote", rec.ID, "false", "--as", "marshal-2", "--evidence", "station still at 3rd", "--store", "sqlite", "--data-dir", dataDir)
	require.NoError(t, err)

	_, err = run(t, "vote", rec.ID, "maybe", "--as", "marshal-2", "--store", "sqlite", "--data-dir", dataDir)
	assert.ErrorIs(t, err, model.ErrInvalidVote)

	out, err = run(t, "show", rec.ID, "--store", "sqlite", "--data-dir", dataDir, "--json")
	require.NoError(t, err)

	var shown model.Record
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Len(t, shown.Votes, 1)
	assert.Equal(t, model.VoteFalse, shown.Votes[0].Vote)
	assert.Equal(t, "station still at 3rd", shown.Votes[0].Evidence)

	out, err = run(t, "list", "--query", "WATER", "--store", "sqlite", "--data-dir", dataDir, "--json")
	require.NoError(t, err)
	var listed struct {
		FactChecks []model.Record `json:"factChecks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.FactChecks, 1)
	assert.Equal(t, rec.ID, listed.FactChecks[0].ID)

	out, err = run(t, "votes", rec.ID, "--store", "sqlite", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "marshal-2")
	assert.Contains(t, out, "1 votes: 0 true, 1 false, 0 disputed")

	out, err = run(t, "recheck", "--all", "--store", "sqlite", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Checked: 1")
}

func TestShow_Unknown(t *testing.T) {
	_, err := run(t, "show", "nope", "--store", "memory")
	assert.ErrorContains(t, err, "not found")
}

func TestRecheck_NeedsIDOrAll(t *testing.T) {
	_, err := run(t, "recheck", "--store", "memory")
	assert.ErrorContains(t, err, "either a record id or --all")
}

func TestBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rumors.txt")
	require.NoError(t, os.WriteFile(path, []byte("Road closed\n# skip\nBridge open | npr.org\n"), 0o644))

	out, err := run(t, "batch", path, "--store", "memory", "--concurrency", "2", "--json")
	require.NoError(t, err)

	var lines []struct {
		Index int    `json:"index"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &lines))
	require.Len(t, lines, 2)
	assert.Equal(t, 0, lines[0].Index)
	assert.Empty(t, lines[1].Error)
}

func TestToken(t *testing.T) {
	t.Setenv("FACTCHECK_SERVER_JWT_SECRET", "test-secret")

	out, err := run(t, "token", "medic-7", "--store", "memory")
	require.NoError(t, err)
	assert.Regexp(t, `^[\w-]+\.[\w-]+\.[\w-]+\n$`, out)
}

func TestToken_NoSecret(t *testing.T) {
	_, err := run(t, "token", "medic-7")
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestBadgeAndTruncate(t *testing.T) {
	assert.Contains(t, badge(model.StatusVerified), "VERIFIED")
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "a b", truncate("a \n  b", 10))
}
