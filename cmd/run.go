package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/avolkov/ats-reconciler/internal/atsapi"
	"github.com/avolkov/ats-reconciler/internal/logger"
	"github.com/avolkov/ats-reconciler/internal/recon"
	"github.com/avolkov/ats-reconciler/internal/secrets"
	"github.com/avolkov/ats-reconciler/internal/status"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptRefresh        = "Refresh"
	PromptExit           = "Exit"
	PromptCountsByStatus = "Counts by status"
	PromptReport         = "Report by requirement"
	PromptApplyAction    = "Apply a workflow action"
	PromptRecordsToFile  = "Dump records to file"
	PromptBack           = "back"
)

var errExit = errors.New("exit requested")

// workflowActions maps user-facing action names onto the status each one
// applies locally. Anything outside this table is a defect, not user input.
var workflowActions = map[string]status.Status{
	"am_shortlist":       status.AMShortlisted,
	"am_hold":            status.AMHold,
	"am_reject":          status.AMRejected,
	"send_to_client":     status.SentToClient,
	"client_shortlist":   status.ClientShortlisted,
	"client_hold":        status.ClientHold,
	"client_reject":      status.ClientRejected,
	"schedule_interview": status.InterviewScheduled,
	"complete_interview": status.InterviewCompleted,
	"select":             status.Selected,
	"negotiate":          status.Negotiation,
	"hire":               status.Hired,
	"decline_offer":      status.OfferDeclined,
}

var prompt = promptui.Select{
	Label: "Next?",
	Items: []string{PromptRefresh, PromptCountsByStatus, PromptReport, PromptApplyAction, PromptRecordsToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a reconciliation pass against the configured providers",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "single pass without the interactive prompt")
	runCmd.Flags().StringP("requirement", "r", "", "scope reconciliation to one requirement id")
	runCmd.Flags().StringP("client", "c", "", "scope reconciliation to one client id")

	viper.BindPFlag("scope.requirement", runCmd.Flags().Lookup("requirement"))
	viper.BindPFlag("scope.client", runCmd.Flags().Lookup("client"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the ats-reconciler", zap.String("version", version))

	if config == nil {
		logger.Fatal("config is required")
	}

	if len(config.Providers) == 0 {
		logger.Fatal("at least one submission provider is required under providers")
	}

	engine, err := buildEngine(config, logger)
	if err != nil {
		logger.Fatal("building the reconciliation engine", zap.Error(err))
	}

	scope := buildScope(config)

	records, err := reconcile(ctx, engine, scope, logger)
	if err != nil {
		logger.Fatal("reconciliation failed", zap.Error(err))
	}

	logger.Info("canonical records", zap.Int("count", len(records)))

	if cmd.Flag("auto-approve").Value.String() == "true" {
		printCounts(records, logger)
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		records, err = handleAction(ctx, action, engine, scope, records, logger)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, engine *recon.Engine, scope recon.Scope, records []recon.CanonicalRecord, logger *zap.Logger) ([]recon.CanonicalRecord, error) {
	switch action {
	case PromptRefresh:
		refreshed, err := reconcile(ctx, engine, scope, logger)
		if err != nil {
			return records, err
		}
		logger.Info("canonical records", zap.Int("count", len(refreshed)))
		return refreshed, nil
	case PromptCountsByStatus:
		printCounts(records, logger)
		return records, nil
	case PromptReport:
		pretty, _ := json.MarshalIndent(recon.ReportByRequirement(records), "", "  ")
		logger.Info(string(pretty), zap.Int("records count", len(records)))
		return records, nil
	case PromptApplyAction:
		return applyWorkflowAction(ctx, engine, scope, records, logger)
	case PromptRecordsToFile:
		filename, err := recon.DumpToTmpFile(records)
		if err != nil {
			return records, fmt.Errorf("dump records to file: %w", err)
		}
		logger.Info("dumping records to file", zap.String("filename", filename))
		return records, nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return records, errExit
	default:
		return records, fmt.Errorf("invalid action: %s", action)
	}
}

// applyWorkflowAction lets the user pick a candidate and a workflow action,
// records the local override, and re-reconciles so the change is visible
// immediately.
func applyWorkflowAction(ctx context.Context, engine *recon.Engine, scope recon.Scope, records []recon.CanonicalRecord, logger *zap.Logger) ([]recon.CanonicalRecord, error) {
	if len(records) == 0 {
		logger.Info("no records to act on")
		return records, nil
	}

	items := make([]string, 0, len(records)+1)
	for _, rec := range records {
		items = append(items, fmt.Sprintf("%s %s / %s / %s",
			rec.CandidateKey, rec.Display.Name, rec.RequirementKey, rec.Status,
		))
	}

	candidatePrompt := promptui.Select{
		Label: "Choose a candidate and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := candidatePrompt.Run()
	if err != nil {
		return records, err
	}
	if selected == PromptBack {
		return records, nil
	}

	candidateKey := strings.Split(selected, " ")[0]
	var rec *recon.CanonicalRecord
	for i := range records {
		if records[i].CandidateKey == candidateKey {
			rec = &records[i]
			break
		}
	}
	if rec == nil {
		return records, fmt.Errorf("there is no such candidate %s", candidateKey)
	}

	actions := make([]string, 0, len(workflowActions))
	for name := range workflowActions {
		actions = append(actions, name)
	}

	actionPrompt := promptui.Select{
		Label: "Choose a workflow action",
		Items: append(actions, PromptBack),
	}

	_, action, err := actionPrompt.Run()
	if err != nil {
		return records, err
	}
	if action == PromptBack {
		return records, nil
	}

	next, err := statusForAction(action)
	if err != nil {
		return records, err
	}

	if err := engine.ApplyLocalOverride(rec.CandidateKey, rec.RequirementKey, next); err != nil {
		return records, fmt.Errorf("applying local override: %w", err)
	}

	refreshed, err := reconcile(ctx, engine, scope, logger)
	if err != nil {
		return records, err
	}

	return refreshed, nil
}

func statusForAction(action string) (status.Status, error) {
	next, ok := workflowActions[action]
	if !ok {
		return "", fmt.Errorf("unknown workflow action: %s", action)
	}

	return next, nil
}

func reconcile(ctx context.Context, engine *recon.Engine, scope recon.Scope, logger *zap.Logger) ([]recon.CanonicalRecord, error) {
	records, err := engine.Reconcile(ctx, scope)
	if err != nil {
		if errors.Is(err, recon.ErrUnavailable) {
			return nil, fmt.Errorf("no provider could be reached; this is not an empty pipeline: %w", err)
		}
		return nil, err
	}

	return records, nil
}

func printCounts(records []recon.CanonicalRecord, logger *zap.Logger) {
	counts := recon.CountsByStatus(records)

	fields := make([]zap.Field, 0, len(counts))
	for _, s := range status.All() {
		if counts[s] > 0 {
			fields = append(fields, zap.Int(string(s), counts[s]))
		}
	}

	logger.Info("counts by status", fields...)
}

func buildScope(config *Config) recon.Scope {
	scope := recon.Scope{
		RequirementID: viper.GetString("scope.requirement"),
		ClientID:      viper.GetString("scope.client"),
	}

	if config.Scope != nil {
		if scope.RequirementID == "" {
			scope.RequirementID = config.Scope.Requirement
		}
		if scope.ClientID == "" {
			scope.ClientID = config.Scope.Client
		}
		for _, s := range config.Scope.Statuses {
			scope.Statuses = append(scope.Statuses, status.Normalize(s))
		}
	}

	return scope
}

func buildEngine(config *Config, logger *zap.Logger) (*recon.Engine, error) {
	sources := make([]recon.Source, 0, len(config.Providers))

	for _, pc := range config.Providers {
		client, err := buildClient(pc, config, logger)
		if err != nil {
			return nil, err
		}

		kind := recon.ScopeKind(pc.Scope)
		switch kind {
		case recon.ScopeRequirement, recon.ScopeClient, recon.ScopeBulk:
		case "":
			kind = recon.ScopeBulk
		default:
			return nil, fmt.Errorf("provider %q: unknown scope kind %q", pc.Name, pc.Scope)
		}

		sources = append(sources, recon.NewSource(client, kind))
	}

	var interviews recon.InterviewSource
	if config.Interviews != nil {
		client, err := buildClient(config.Interviews, config, logger)
		if err != nil {
			return nil, err
		}
		interviews = recon.NewInterviewSource(client)
	} else {
		logger.Warn("no interview feed configured; the interview overlay is disabled")
	}

	opts := recon.Options{}
	if config.Timeouts != nil {
		opts.OverallTimeout = config.Timeouts.Overall
	}

	return recon.New(logger, sources, interviews, opts), nil
}

func buildClient(pc *ProviderConfig, config *Config, logger *zap.Logger) (*atsapi.Client, error) {
	tokenFile := strings.TrimSpace(pc.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("token-file"))
	}

	token, err := secrets.Load(secrets.Source{
		Name: fmt.Sprintf("%s token", pc.Name),
		File: tokenFile,
		Env:  "ATS_TOKEN",
	})
	if err != nil {
		return nil, fmt.Errorf("loading token for provider %q: %w", pc.Name, err)
	}

	cfg := atsapi.Config{
		Name:    pc.Name,
		BaseURL: pc.BaseURL,
		Token:   token,
		Shape:   atsapi.Shape(pc.Shape),
	}
	if config.Timeouts != nil {
		cfg.Timeout = config.Timeouts.PerCall
	}

	client := atsapi.New(logger, cfg)
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	return client, nil
}
