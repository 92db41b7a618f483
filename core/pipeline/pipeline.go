package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tristendillon/diagify/core/config"
	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/executor"
	"github.com/tristendillon/diagify/core/llm"
	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/models"
	"github.com/tristendillon/diagify/core/prompt"
	"github.com/tristendillon/diagify/core/storage"
	"github.com/tristendillon/diagify/core/validator"
)

const WarnIncomplete = "could not fully correct imports"

// Runner executes generated code and finds the produced image.
type Runner interface {
	Execute(ctx context.Context, source string) (executor.Result, error)
}

type History interface {
	Record(ctx context.Context, run models.RunRecord) (string, error)
}

type Pipeline struct {
	cfg     *config.Config
	client  llm.Client
	catalog *models.Catalog
	runner  Runner
	objects storage.ObjectStore
	history History
	opts    validator.Options
}

type Option func(*Pipeline)

func WithObjectStore(s storage.ObjectStore) Option {
	return func(p *Pipeline) { p.objects = s }
}

func WithHistory(h History) Option {
	return func(p *Pipeline) { p.history = h }
}

func New(cfg *config.Config, client llm.Client, catalog *models.Catalog, runner Runner, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		client:  client,
		catalog: catalog,
		runner:  runner,
		opts:    validator.OptionsFromConfig(cfg),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type Result struct {
	RunID        string
	State        models.RunState
	Source       string
	SourcePath   string
	ArtifactPath string
	Report       models.ImportReport
	Requests     int
	Corrections  int
	Warnings     []string
}

// Run takes description to an image at output. An empty output leaves the
// image in the working directory.
func (p *Pipeline) Run(ctx context.Context, description, output string) (res Result, err error) {
	res.RunID = uuid.New().String()
	res.State = models.StateStart
	started := time.Now()

	defer func() {
		if err != nil {
			res.State = models.StateFailed
		}
		p.record(ctx, description, started, &res, err)
	}()

	if err = p.generate(ctx, description, &res); err != nil {
		return res, err
	}
	if err = p.validate(ctx, description, &res); err != nil {
		return res, err
	}
	if err = p.execute(ctx, output, &res); err != nil {
		return res, err
	}

	res.State = models.StateDone
	logger.Info("Diagram written to %s", res.ArtifactPath)
	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, description string, res *Result) error {
	user, err := prompt.Generation(description)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to render generation prompt")
	}

	logger.Info("Generating diagram code with %s (%s)", p.client.Provider(), p.cfg.Generation.Model)
	resp, err := p.client.Complete(ctx, llm.StageRequest(p.cfg.Generation, prompt.System(), user))
	res.Requests++
	if err != nil {
		return err
	}

	res.Source = llm.StripFences(resp.Text)
	res.State = models.StateGenerated
	logger.Debug("Generated code:\n%s", res.Source)
	return nil
}

// validate checks imports and, while lines stay flagged, asks for corrections
// up to the configured number of attempts, re-validating each answer.
func (p *Pipeline) validate(ctx context.Context, description string, res *Result) error {
	res.Report = validator.Validate(res.Source, p.catalog, p.opts)
	res.State = models.StateValidated
	logger.Info("Validated imports: %d flagged, %d unfixable", len(res.Report.Flagged), len(res.Report.Unfixable))

	for attempt := 1; res.Report.HasFlagged() && attempt <= p.cfg.Correction.MaxAttempts; attempt++ {
		for _, f := range res.Report.Flagged {
			logger.Debug("Flagged %q -> %v", f.Line, f.Suggestions)
		}

		user, err := prompt.Correction(res.Source, res.Report, description)
		if err != nil {
			return derrors.Wrap(err, derrors.CodeInternal, "failed to render correction prompt")
		}

		logger.Info("Requesting import correction %d/%d with %s", attempt, p.cfg.Correction.MaxAttempts, p.cfg.Correction.Model)
		resp, err := p.client.Complete(ctx, llm.StageRequest(p.cfg.Correction.Stage, "", user))
		res.Requests++
		if err != nil {
			return err
		}

		res.Source = llm.StripFences(resp.Text)
		res.Corrections++
		res.State = models.StateCorrected
		res.Report = validator.Validate(res.Source, p.catalog, p.opts)
	}

	if res.Report.HasFlagged() {
		p.warn(res, fmt.Sprintf("%s: %d line(s) still flagged after %d correction(s)",
			WarnIncomplete, len(res.Report.Flagged), res.Corrections))
	}
	for _, line := range res.Report.Unfixable {
		p.warn(res, fmt.Sprintf("no catalog match for %q", line))
	}
	if p.cfg.Validation.FailOnUnfixable && len(res.Report.Unfixable) > 0 {
		return derrors.Newf(derrors.CodeValidation, "%d import line(s) have no catalog match", len(res.Report.Unfixable)).
			WithContext(derrors.CtxStage, string(res.State))
	}
	return nil
}

func (p *Pipeline) execute(ctx context.Context, output string, res *Result) error {
	logger.Info("Executing generated code")
	run, err := p.runner.Execute(ctx, res.Source)
	res.SourcePath = run.SourcePath
	if err != nil {
		return err
	}
	res.State = models.StateExecuted

	dest := output
	if dest == "" && p.cfg.Execution.Isolate {
		// Isolated runs hand the image back to the working directory.
		if dest, err = os.Getwd(); err != nil {
			return fmt.Errorf("cannot determine working dir: %w", err)
		}
	}

	final, err := executor.Relocate(ctx, run.ImagePath, dest, p.objects)
	if err != nil {
		return err
	}
	res.ArtifactPath = final

	if final != run.ImagePath {
		if err := run.Cleanup(); err != nil {
			logger.Debug("Failed to remove run directory %s: %v", run.WorkDir, err)
		}
	}
	return nil
}

func (p *Pipeline) warn(res *Result, msg string) {
	res.Warnings = append(res.Warnings, msg)
	logger.Warn("%s", msg)
}

func (p *Pipeline) record(ctx context.Context, description string, started time.Time, res *Result, runErr error) {
	if p.history == nil {
		return
	}
	run := models.RunRecord{
		ID:           res.RunID,
		Description:  description,
		Provider:     p.client.Provider(),
		Model:        p.cfg.Generation.Model,
		State:        res.State,
		Flagged:      len(res.Report.Flagged),
		Unfixable:    len(res.Report.Unfixable),
		Corrections:  res.Corrections,
		SourcePath:   res.SourcePath,
		ArtifactPath: res.ArtifactPath,
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// History is written even when ctx was cancelled.
	if _, err := p.history.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to record run history: %v", err)
	}
}
