package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/critiq/critiq/internal/analyze"
	"github.com/critiq/critiq/internal/cache"
	"github.com/critiq/critiq/internal/config"
	"github.com/critiq/critiq/internal/extend"
	"github.com/critiq/critiq/internal/gitctx"
	"github.com/critiq/critiq/internal/github"
	"github.com/critiq/critiq/internal/output"
	"github.com/critiq/critiq/internal/pipeline"
	"github.com/critiq/critiq/internal/review"
	"github.com/critiq/critiq/internal/submit"
)

// Shared review flags
var (
	flagExclude      string
	flagContextLines int
	flagModel        string
	flagEvent        string
	flagFormat       string
	flagOut          string
	flagDryRun       bool
	flagNoRedact     bool
)

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagContextLines, "context-lines", 0, "Extra context lines around each hunk")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().StringVar(&flagEvent, "event", "", "Review event (COMMENT, APPROVE, REQUEST_CHANGES)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Analyze without posting anything")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagEvent != "" {
		m["event"] = flagEvent
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagContextLines > 0 {
		m["contextLines"] = fmt.Sprintf("%d", flagContextLines)
	}
	return m
}

func buildDiffOpts(cfg config.Config) gitctx.DiffOptions {
	opts := gitctx.DiffOptions{
		ContextLines: cfg.ContextLines,
		Exclude:      cfg.Exclude,
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// newPipeline assembles a pipeline from the effective config. The poster
// is nil for local reviews, which never submit.
func newPipeline(cfg config.Config, provider extend.ContentProvider, poster submit.ReviewPoster, log *zap.Logger) (*pipeline.Pipeline, error) {
	if flagNoRedact {
		cfg.Privacy.RedactSecrets = false
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}

	analyzer, err := analyze.NewAnthropic(cfg.Model, log)
	if err != nil {
		return nil, err
	}

	results, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		log.Warn("analysis cache unavailable", zap.Error(err))
		results = nil
	}

	return pipeline.New(pipeline.Options{
		Provider: provider,
		Analyzer: analyzer,
		Poster:   poster,
		Results:  results,
		Config:   cfg,
		Log:      log,
	}), nil
}

func finishRun(res *pipeline.Result, runErr error, cfg config.Config) {
	if runErr != nil {
		if analyze.IsAuthError(runErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
			exitCode = ExitAuthError
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		exitCode = ExitRuntimeError
		if res == nil {
			return
		}
	}

	if err := output.WriteResult(res, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if exitCode == ExitSuccess && res.Review != nil && res.Review.Verdict == review.VerdictRequestChanges {
		exitCode = ExitChangesWanted
	}
}

func runLocalReview(diffFn func(gitctx.DiffOptions) (gitctx.DiffResult, error)) error {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return err
	}
	log := newLogger()
	defer func() { _ = log.Sync() }()

	diff, err := diffFn(buildDiffOpts(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}

	p, err := newPipeline(cfg, gitctx.Files{}, nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitAuthError
		return nil
	}

	res, runErr := p.Run(context.Background(), pipeline.Request{
		DiffText: diff.Diff,
		DryRun:   true,
	})
	finishRun(res, runErr, cfg)
	return nil
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review code changes",
	Long:  "Review code changes with an LLM. Use subcommands to pick the source: local staged or unstaged changes, or a GitHub pull request.",
}

var reviewUnstagedCmd = &cobra.Command{
	Use:   "unstaged",
	Short: "Review unstaged changes (working tree vs index)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocalReview(gitctx.Unstaged)
	},
}

var reviewStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Review staged changes (index vs HEAD)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocalReview(gitctx.Staged)
	},
}

var flagCommit string

var reviewPRCmd = &cobra.Command{
	Use:   "pr <owner>/<repo> <number>",
	Short: "Review a GitHub pull request and post the review",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, ok := strings.Cut(args[0], "/")
		if !ok || owner == "" || repo == "" {
			return fmt.Errorf("repository must be <owner>/<repo>, got %q", args[0])
		}
		prNumber, err := strconv.Atoi(args[1])
		if err != nil || prNumber <= 0 {
			return fmt.Errorf("invalid pull request number %q", args[1])
		}

		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		log := newLogger()
		defer func() { _ = log.Sync() }()

		client, err := github.NewClient(log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		ctx := context.Background()
		diffText, err := client.GetPRDiff(ctx, owner, repo, prNumber)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching PR diff: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		commitID := flagCommit
		if commitID == "" {
			commitID, err = client.GetPRHead(ctx, owner, repo, prNumber)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching PR head: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
		}

		p, err := newPipeline(cfg, client.Files(owner, repo), client, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		res, runErr := p.Run(ctx, pipeline.Request{
			Owner:    owner,
			Repo:     repo,
			PRNumber: prNumber,
			CommitID: commitID,
			Ref:      commitID,
			DiffText: diffText,
			DryRun:   flagDryRun,
		})
		finishRun(res, runErr, cfg)
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewUnstagedCmd)
	reviewCmd.AddCommand(reviewStagedCmd)
	reviewCmd.AddCommand(reviewPRCmd)

	for _, cmd := range []*cobra.Command{
		reviewUnstagedCmd,
		reviewStagedCmd,
		reviewPRCmd,
	} {
		addReviewFlags(cmd)
	}

	reviewPRCmd.Flags().StringVar(&flagCommit, "commit", "", "Head commit SHA to anchor review comments (default: latest)")
}
