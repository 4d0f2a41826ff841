package optimizer

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

// ADRPublisher mirrors an optimizer decision somewhere a human reviews
// it. Publish failures never abort a cycle; they are logged by the
// caller and the cycle's outcome is unaffected.
type ADRPublisher interface {
	Publish(ctx context.Context, adr model.RuleADR) error
}

// NoopADRPublisher discards every ADR; it is the default when no issue
// tracker is configured.
type NoopADRPublisher struct{}

func (NoopADRPublisher) Publish(ctx context.Context, adr model.RuleADR) error { return nil }

// GitHubADRPublisher files each RuleADR as a comment on a configured
// tracking issue, so a reviewer gets a running, human-readable history
// of every optimizer decision without the orchestrator depending on
// GitHub being reachable for correctness.
type GitHubADRPublisher struct {
	client *github.Client
	owner  string
	repo   string
	issue  int
	logger *zap.Logger
}

// NewGitHubADRPublisher authenticates an oauth2 static token client and
// wires it to the given owner/repo/issue.
func NewGitHubADRPublisher(ctx context.Context, token, owner, repo string, issue int, logger *zap.Logger) (*GitHubADRPublisher, error) {
	if token == "" {
		return nil, model.NewConfigError("github-adr-publisher", fmt.Errorf("github token not set"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	return &GitHubADRPublisher{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
		issue:  issue,
		logger: logger,
	}, nil
}

func (p *GitHubADRPublisher) Publish(ctx context.Context, adr model.RuleADR) error {
	body := fmt.Sprintf(
		"### ADR-%d: %s\n\n**Decision:** %s\n\n**Rationale:** %s\n\n**Change:** %s on `%s`\n",
		adr.Number, adr.Title, adr.Decision, adr.Rationale, adr.Change.Kind, adr.Change.TargetRuleID,
	)

	_, _, err := p.client.Issues.CreateComment(ctx, p.owner, p.repo, p.issue, &github.IssueComment{
		Body: &body,
	})
	if err != nil {
		p.logger.Warn("failed to publish ADR to github", zap.Int("adr", adr.Number), zap.Error(err))
		return fmt.Errorf("optimizer: publishing ADR to github: %w", err)
	}
	return nil
}
