package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/cenkalti/backoff/v4"
	"github.com/jedib0t/go-pretty/v6/text"

	"botfleet/internal/api"
)

var errNotSettled = errors.New("update still in progress")

// UpdateOptions configures UpdateWithProgress.
type UpdateOptions struct {
	// PollInterval is the delay between two status polls.
	PollInterval time.Duration

	// Quiet disables the spinner and stage lines.
	Quiet bool

	// Out receives stage lines and the spinner.
	Out io.Writer

	// OnStage is called once per stage, in order, if set.
	OnStage func(api.UpdateStage)
}

// UpdateWithProgress applies changes to a bot and follows the rollout until
// it completes or fails. The validation and upload stages are local and are
// reported before anything is sent.
func UpdateWithProgress(ctx context.Context, bots api.BotManagerHandler, id string, changes api.BotChanges, tenant string, opts UpdateOptions) (*api.BotDetail, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	p := newProgress(opts)
	defer p.stop()

	p.stage(api.StageValidation)
	if err := checkChanges(changes); err != nil {
		return nil, err
	}
	if len(changes.Code) > 0 {
		p.stage(api.StageUpload)
	}

	if _, err := bots.Update(ctx, id, changes, tenant); err != nil {
		return nil, err
	}

	return WaitForStage(ctx, func(ctx context.Context) (*api.BotDetail, error) {
		return bots.Status(ctx, id, tenant)
	}, opts.PollInterval, p.stage)
}

// WaitForStage polls fetch at a constant interval until the returned stage is
// terminal. Every stage change is passed to report. A rollout that ends in the
// error stage is returned together with an error.
func WaitForStage(ctx context.Context, fetch func(context.Context) (*api.BotDetail, error), interval time.Duration, report func(api.UpdateStage)) (*api.BotDetail, error) {
	var (
		detail *api.BotDetail
		last   api.UpdateStage
	)
	poll := func() error {
		d, err := fetch(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		detail = d
		if d.Stage != last {
			last = d.Stage
			if report != nil {
				report(d.Stage)
			}
		}
		if !d.Stage.Terminal() {
			return errNotSettled
		}
		return nil
	}

	if err := backoff.Retry(poll, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)); err != nil {
		return detail, err
	}
	if detail.Stage == api.StageError {
		return detail, fmt.Errorf("bot %s failed to roll out", detail.Bot.ID)
	}
	return detail, nil
}

func checkChanges(c api.BotChanges) error {
	if c.Language == nil && c.Version == nil && c.Image == nil && c.Env == nil &&
		c.StartCommand == nil && c.Code == nil && c.WorkflowID == nil {
		return api.NewValidationError("", "no changes given")
	}
	return nil
}

// progress shows the current stage on a spinner and prints one line per
// finished stage.
type progress struct {
	opts    UpdateOptions
	spinner *spinner.Spinner
	current api.UpdateStage
}

func newProgress(opts UpdateOptions) *progress {
	p := &progress{opts: opts}
	if !opts.Quiet && opts.Out != nil {
		p.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(opts.Out))
		p.spinner.Start()
	}
	return p
}

func (p *progress) stage(s api.UpdateStage) {
	if p.opts.OnStage != nil {
		p.opts.OnStage(s)
	}
	if p.spinner == nil {
		return
	}

	p.spinner.Lock()
	if p.current != "" {
		// Erase the spinner line before printing the finished stage.
		fmt.Fprintf(p.opts.Out, "\r\033[K%s %s\n", text.FgGreen.Sprint("✓"), p.current)
	}
	p.current = s
	p.spinner.Suffix = " " + string(s) + "..."
	p.spinner.Unlock()
}

func (p *progress) stop() {
	if p.spinner == nil {
		return
	}
	p.spinner.Stop()
	switch p.current {
	case api.StageComplete:
		fmt.Fprintf(p.opts.Out, "%s %s\n", text.FgGreen.Sprint("✓"), p.current)
	case api.StageError:
		fmt.Fprintf(p.opts.Out, "%s %s\n", text.FgRed.Sprint("✗"), p.current)
	}
}
