package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tristendillon/diagify/core/config"
	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/executor"
	"github.com/tristendillon/diagify/core/llm"
	"github.com/tristendillon/diagify/core/models"
)

const webService = `from diagrams import Diagram
from diagrams.aws.compute import EC2
from diagrams.aws.database import RDS
from diagrams.aws.network import ELB

with Diagram("Web Service", show=False):
    ELB("lb") >> [EC2("web1"), EC2("web2"), EC2("web3")] >> RDS("db")
`

const dynamoWrong = `from diagrams import Diagram
from diagrams.aws.compute import Lambda
from diagrams.aws.database import DynamoDB

with Diagram("Serverless", show=False):
    Lambda("fn") >> DynamoDB("table")
`

const dynamoFixed = `from diagrams import Diagram
from diagrams.aws.compute import Lambda
from diagrams.aws.database import Dynamodb

with Diagram("Serverless", show=False):
    Lambda("fn") >> Dynamodb("table")
`

func testCatalog() *models.Catalog {
	return models.NewCatalog("diagrams", []models.CatalogEntry{
		"from diagrams.aws.compute import EC2",
		"from diagrams.aws.compute import Lambda",
		"from diagrams.aws.compute import _Compute",
		"from diagrams.aws.database import Dynamodb",
		"from diagrams.aws.database import RDS",
		"from diagrams.aws.database import _Database",
		"from diagrams.aws.network import ELB",
	})
}

type scriptedClient struct {
	replies  []string
	err      error
	requests []llm.Request
}

func (c *scriptedClient) Provider() string { return "scripted" }

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return llm.Response{}, c.err
	}
	i := len(c.requests) - 1
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return llm.Response{Text: c.replies[i]}, nil
}

type fakeRunner struct {
	dir      string
	isolated bool
	err      error
	sources  []string
}

func (r *fakeRunner) Execute(ctx context.Context, source string) (executor.Result, error) {
	r.sources = append(r.sources, source)
	res := executor.Result{WorkDir: r.dir, Isolated: r.isolated, SourcePath: filepath.Join(r.dir, "gen.py")}
	if r.err != nil {
		return res, r.err
	}
	img := filepath.Join(r.dir, "web_service.png")
	if err := os.WriteFile(img, []byte("PNG"), 0o644); err != nil {
		return res, err
	}
	res.ImagePath = img
	return res, nil
}

type memoryHistory struct {
	runs []models.RunRecord
}

func (h *memoryHistory) Record(ctx context.Context, run models.RunRecord) (string, error) {
	h.runs = append(h.runs, run)
	return run.ID, nil
}

func setup(t *testing.T, replies ...string) (*config.Config, *scriptedClient, *fakeRunner, *memoryHistory) {
	t.Helper()
	cfg := config.Default()
	return cfg, &scriptedClient{replies: replies}, &fakeRunner{dir: t.TempDir()}, &memoryHistory{}
}

func TestRunCleanGenerationNeedsOneRequest(t *testing.T) {
	cfg, client, runner, history := setup(t, webService)
	out := filepath.Join(t.TempDir(), "arch.png")

	p := New(cfg, client, testCatalog(), runner, WithHistory(history))
	res, err := p.Run(context.Background(), "A load balancer in front of three web servers talking to one database", out)
	require.NoError(t, err)

	assert.Equal(t, models.StateDone, res.State)
	assert.Equal(t, 1, res.Requests)
	assert.Equal(t, 0, res.Corrections)
	assert.True(t, res.Report.Clean())
	assert.Equal(t, out, res.ArtifactPath)
	assert.FileExists(t, out)
	assert.Empty(t, res.Warnings)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 0.5, req.Temperature)
	assert.Equal(t, 1084, req.MaxTokens)
	assert.NotEmpty(t, req.System)
	assert.Contains(t, req.User, "three web servers")

	require.Len(t, runner.sources, 1)
	assert.Equal(t, webService, runner.sources[0]+"\n")

	require.Len(t, history.runs, 1)
	assert.Equal(t, models.StateDone, history.runs[0].State)
	assert.Equal(t, res.RunID, history.runs[0].ID)
	assert.Equal(t, out, history.runs[0].ArtifactPath)
}

func TestRunCorrectsWrongCasing(t *testing.T) {
	cfg, client, runner, history := setup(t, "```python\n"+dynamoWrong+"```", dynamoFixed)
	out := filepath.Join(t.TempDir(), "serverless.png")

	res, err := New(cfg, client, testCatalog(), runner, WithHistory(history)).
		Run(context.Background(), "A lambda writing to a DynamoDB table", out)
	require.NoError(t, err)

	assert.Equal(t, models.StateDone, res.State)
	assert.Equal(t, 2, res.Requests)
	assert.Equal(t, 1, res.Corrections)
	assert.True(t, res.Report.Clean())
	assert.Empty(t, res.Warnings)

	correction := client.requests[1]
	assert.Equal(t, "gpt-4o", correction.Model)
	assert.Equal(t, 0.3, correction.Temperature)
	assert.Empty(t, correction.System)
	assert.Contains(t, correction.User, "- Incorrect: from diagrams.aws.database import DynamoDB | Suggested: [from diagrams.aws.database import Dynamodb")
	assert.Contains(t, correction.User, "A lambda writing to a DynamoDB table")

	require.Len(t, runner.sources, 1)
	assert.Contains(t, runner.sources[0], "import Dynamodb")
	assert.Equal(t, 1, history.runs[0].Corrections)
}

func TestValidateFlagsDynamoDBWithCorrectCasingFirst(t *testing.T) {
	cfg, client, runner, _ := setup(t, dynamoWrong)
	cfg.Correction.MaxAttempts = 0

	res, err := New(cfg, client, testCatalog(), runner).Run(context.Background(), "dynamo", filepath.Join(t.TempDir(), "x.png"))
	require.NoError(t, err)

	flagged := res.Report.Map()
	require.Contains(t, flagged, "from diagrams.aws.database import DynamoDB")
	suggestions := flagged["from diagrams.aws.database import DynamoDB"]
	assert.Equal(t, "from diagrams.aws.database import Dynamodb", suggestions[0])
	for _, s := range suggestions {
		assert.False(t, strings.HasPrefix(models.CatalogEntry(s).Name(), "_"), s)
	}

	// No attempts configured: proceeds with a warning.
	assert.Equal(t, 1, res.Requests)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], WarnIncomplete)
}

func TestCorrectionLoopStopsOnCleanValidation(t *testing.T) {
	cfg, client, runner, _ := setup(t, dynamoWrong, dynamoFixed, dynamoWrong)
	cfg.Correction.MaxAttempts = 5

	res, err := New(cfg, client, testCatalog(), runner).Run(context.Background(), "dynamo", filepath.Join(t.TempDir(), "x.png"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Requests)
	assert.Equal(t, 1, res.Corrections)
}

func TestCorrectionLoopWarnsWhenExhausted(t *testing.T) {
	cfg, client, runner, _ := setup(t, dynamoWrong)
	cfg.Correction.MaxAttempts = 2

	res, err := New(cfg, client, testCatalog(), runner).Run(context.Background(), "dynamo", filepath.Join(t.TempDir(), "x.png"))
	require.NoError(t, err)

	assert.Equal(t, models.StateDone, res.State)
	assert.Equal(t, 3, res.Requests)
	assert.Equal(t, 2, res.Corrections)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], WarnIncomplete)
	assert.True(t, res.Report.HasFlagged())
	require.Len(t, runner.sources, 1)
}

func TestUnfixableLinesWarnByDefault(t *testing.T) {
	src := "import diagrams\n" + webService
	cfg, client, runner, _ := setup(t, src)

	res, err := New(cfg, client, testCatalog(), runner).Run(context.Background(), "x", filepath.Join(t.TempDir(), "x.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{"import diagrams"}, res.Report.Unfixable)
	assert.Equal(t, 1, res.Requests)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "import diagrams")
}

func TestUnfixableLinesFailWhenConfigured(t *testing.T) {
	src := "import diagrams\n" + webService
	cfg, client, runner, history := setup(t, src)
	cfg.Validation.FailOnUnfixable = true

	res, err := New(cfg, client, testCatalog(), runner, WithHistory(history)).
		Run(context.Background(), "x", filepath.Join(t.TempDir(), "x.png"))
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeValidation))
	assert.Equal(t, models.StateFailed, res.State)
	assert.Empty(t, runner.sources)
	assert.Equal(t, 1, history.runs[0].Unfixable)
}

func TestGenerationFailureIsTerminal(t *testing.T) {
	cfg, client, runner, history := setup(t)
	client.err = errors.New("network down")

	res, err := New(cfg, client, testCatalog(), runner, WithHistory(history)).
		Run(context.Background(), "x", "")
	require.Error(t, err)
	assert.Equal(t, models.StateFailed, res.State)
	assert.Equal(t, 1, res.Requests)
	assert.Empty(t, runner.sources)

	require.Len(t, history.runs, 1)
	assert.Equal(t, models.StateFailed, history.runs[0].State)
	assert.Contains(t, history.runs[0].Error, "network down")
}

func TestExecutionFailureIsTerminal(t *testing.T) {
	cfg, client, runner, history := setup(t, webService)
	runner.err = derrors.New(derrors.CodeExecution, "generated code failed")

	res, err := New(cfg, client, testCatalog(), runner, WithHistory(history)).
		Run(context.Background(), "x", "")
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeExecution))
	assert.Equal(t, models.StateFailed, res.State)
	assert.NotEmpty(t, res.SourcePath)
	assert.Equal(t, res.SourcePath, history.runs[0].SourcePath)
}

func TestIsolatedRunWithoutOutputLandsInWorkingDir(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	cfg, client, runner, _ := setup(t, webService)
	cfg.Execution.Isolate = true
	runner.isolated = true

	res, err := New(cfg, client, testCatalog(), runner).Run(context.Background(), "x", "")
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "web_service.png"), res.ArtifactPath)
	assert.FileExists(t, res.ArtifactPath)
	// The private run directory goes away once the image is out of it.
	assert.NoDirExists(t, runner.dir)
}

func TestIsolatedRunKeepsDirectoryWhenExecutionFails(t *testing.T) {
	cfg, client, runner, _ := setup(t, webService)
	cfg.Execution.Isolate = true
	runner.isolated = true
	runner.err = derrors.New(derrors.CodeExecution, "boom")

	_, err := New(cfg, client, testCatalog(), runner).Run(context.Background(), "x", "")
	require.Error(t, err)
	assert.DirExists(t, runner.dir)
}

func TestSharedRunWithoutOutputKeepsDiscoveredPath(t *testing.T) {
	cfg, client, runner, _ := setup(t, webService)
	cfg.Execution.Isolate = false

	res, err := New(cfg, client, testCatalog(), runner).Run(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(runner.dir, "web_service.png"), res.ArtifactPath)
	assert.DirExists(t, runner.dir)
}
