// Package executor runs policies: it acquires authentication, walks the
// active rules in order, and aggregates per-rule outcomes into a single
// policy result.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ruleflow-io/ruleflow/pkg/auth"
	"github.com/ruleflow-io/ruleflow/pkg/conditions"
	"github.com/ruleflow-io/ruleflow/pkg/eventbus"
	"github.com/ruleflow-io/ruleflow/pkg/events"
	"github.com/ruleflow-io/ruleflow/pkg/invoker"
	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/otelhelper"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
	"github.com/ruleflow-io/ruleflow/pkg/template"
)

// ErrPolicyInactive is returned when the requested policy exists but is
// disabled. Nothing is executed and only a Skipped log entry is written.
var ErrPolicyInactive = errors.New("policy is inactive")

// callAPIActionType is the only action type the executor dispatches. Rules
// with any other type produce no result and are reported as such.
const callAPIActionType = "callApi"

// Executor orchestrates policy runs. The event bus and tracer are optional;
// when nil the corresponding concern is simply skipped.
type Executor struct {
	persistence persistence.Persistence
	conditions  *conditions.Evaluator
	invoker     *invoker.Invoker
	tokens      *auth.TokenService
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewExecutor(
	p persistence.Persistence,
	inv *invoker.Invoker,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		persistence: p,
		conditions:  conditions.NewEvaluator(logger),
		invoker:     inv,
		tokens:      tokens,
		logger:      logger,
	}
}

// WithEventBus enables best-effort lifecycle event publishing.
func (e *Executor) WithEventBus(bus eventbus.EventBus) *Executor {
	e.eventBus = bus

	return e
}

// WithTracer enables span creation for runs and individual rules.
func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

// Execute runs one policy to completion. Rules execute sequentially in
// ascending order; each rule's propagated result becomes the next rule's
// previousResult. Failures surface as a structured result with Success=false
// rather than an error; the error return is reserved for a missing or
// inactive policy.
func (e *Executor) Execute(ctx context.Context, policyID string, initial map[string]any) (*models.PolicyResult, error) {
	startTime := time.Now().UTC()
	execCtx := models.NewExecutionContext(initial)
	outcomes := make([]models.RuleOutcome, 0)

	var lastResult any

	policy, err := e.persistence.Policies().GetByID(ctx, policyID)
	if err != nil {
		e.appendLog(ctx, policyID, nil, models.StatusFailed, nil, nil, "Policy not found", startTime)

		return nil, err
	}

	if !policy.Active {
		e.appendLog(ctx, policyID, nil, models.StatusSkipped, nil, nil, "Policy is inactive", startTime)

		return nil, ErrPolicyInactive
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "policy.execute",
			attribute.String(otelhelper.PolicyIDKey, policy.ID),
			attribute.String(otelhelper.PolicyNameKey, policy.Name),
		)
		defer span.End()
	}

	e.logger.InfoContext(ctx, "Starting policy execution", "policy_id", policy.ID, "policy_name", policy.Name)

	e.publish(ctx, policy.ID, events.PolicyExecutionStarted{
		BaseEvent:  e.baseEvent(events.PolicyExecutionStartedEvent, policy.ID),
		PolicyName: policy.Name,
	})

	if policy.AuthenticationSettingID != nil {
		token := e.tokens.AcquireToken(ctx, *policy.AuthenticationSettingID)
		if token == "" {
			errMsg := "Failed to acquire authentication token"
			e.logger.ErrorContext(ctx, errMsg, "policy_id", policy.ID)
			e.appendLog(ctx, policy.ID, nil, models.StatusFailed, initial, nil, errMsg, startTime)
			e.publish(ctx, policy.ID, events.PolicyExecutionFailed{
				BaseEvent: e.baseEvent(events.PolicyExecutionFailedEvent, policy.ID),
				Error:     errMsg,
				Duration:  time.Since(startTime),
			})

			return &models.PolicyResult{
				PolicyID:   policy.ID,
				PolicyName: policy.Name,
				ExecutedAt: time.Now().UTC(),
				Success:    false,
				Status:     models.StatusFailed,
				Error:      errMsg,
				Outcomes:   outcomes,
				Context:    execCtx,
			}, nil
		}

		execCtx[models.ContextAuthToken] = token

		if policy.AuthenticationSetting != nil {
			execCtx[models.ContextAuthSettingName] = policy.AuthenticationSetting.Name
		}
	}

	activeRules := policy.ActiveRules()

	e.logger.InfoContext(ctx, "Executing active rules", "policy_id", policy.ID, "count", len(activeRules))

	for _, rule := range activeRules {
		ruleStart := time.Now().UTC()
		execCtx[models.ContextPreviousResult] = lastResult

		ruleCtx := ctx

		var ruleSpan trace.Span

		if e.tracer != nil {
			ruleCtx, ruleSpan = otelhelper.StartSpan(ctx, e.tracer, "rule.execute",
				attribute.String(otelhelper.RuleIDKey, rule.ID),
				attribute.String(otelhelper.RuleNameKey, rule.Name),
				attribute.Int(otelhelper.RuleOrderKey, rule.Order),
			)
		}

		outcome, propagate, invokeErr := e.executeRule(ruleCtx, policy, rule, execCtx, lastResult, ruleStart)

		if ruleSpan != nil {
			if invokeErr != nil {
				otelhelper.SetError(ruleSpan, invokeErr)
			}

			ruleSpan.End()
		}

		outcomes = append(outcomes, outcome)

		if invokeErr != nil {
			// Fail fast: an invocation error stops the whole run, but the
			// outcomes recorded so far are preserved in the result.
			failure := &models.PolicyResult{
				PolicyID:      policy.ID,
				PolicyName:    policy.Name,
				ExecutedAt:    time.Now().UTC(),
				Success:       false,
				Status:        models.StatusFailed,
				Error:         fmt.Sprintf("Rule '%s' failed: %s", rule.Name, invokeErr.Error()),
				FailedAtRule:  rule.Order,
				RulesExecuted: len(outcomes),
				Outcomes:      outcomes,
				Context:       execCtx,
			}

			e.appendLog(ctx, policy.ID, nil, models.StatusFailed, initial, failure, invokeErr.Error(), startTime)
			e.publish(ctx, policy.ID, events.PolicyExecutionFailed{
				BaseEvent: e.baseEvent(events.PolicyExecutionFailedEvent, policy.ID),
				Error:     failure.Error,
				Duration:  time.Since(startTime),
			})

			return failure, nil
		}

		if propagate {
			lastResult = outcome.Result
			execCtx[models.ContextLastResult] = outcome.Result
			execCtx[models.ContextPreviousResult] = outcome.Result
		}
	}

	if err := e.persistence.Policies().SetLastExecuted(ctx, policy.ID, time.Now().UTC()); err != nil {
		e.logger.WarnContext(ctx, "Failed to update policy last-executed time", "policy_id", policy.ID, "error", err)
	}

	succeeded := 0

	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
		}
	}

	status := models.StatusSuccess
	if succeeded < len(outcomes) {
		status = models.StatusCompletedWithErrors
	}

	result := &models.PolicyResult{
		PolicyID:       policy.ID,
		PolicyName:     policy.Name,
		ExecutedAt:     time.Now().UTC(),
		Success:        succeeded == len(outcomes),
		Status:         status,
		RulesExecuted:  len(activeRules),
		RulesSucceeded: succeeded,
		LastResult:     lastResult,
		Outcomes:       outcomes,
		Context:        execCtx,
	}

	e.appendLog(ctx, policy.ID, nil, status, initial, result, "", startTime)
	e.publish(ctx, policy.ID, events.PolicyExecutionCompleted{
		BaseEvent:      e.baseEvent(events.PolicyExecutionCompletedEvent, policy.ID),
		Status:         status,
		RulesExecuted:  len(activeRules),
		RulesSucceeded: succeeded,
		Duration:       time.Since(startTime),
	})

	e.logger.InfoContext(ctx, "Policy execution completed",
		"policy_id", policy.ID,
		"status", status,
		"rules_executed", len(activeRules))

	return result, nil
}

// executeRule runs one rule: pre-check, invocation, output mapping and
// post-check. The returned propagate flag tells the caller whether the
// outcome's result becomes the next rule's previousResult; a non-nil error
// means the invocation itself failed and the run must abort.
func (e *Executor) executeRule(
	ctx context.Context,
	policy *models.Policy,
	rule *models.Rule,
	execCtx models.ExecutionContext,
	lastResult any,
	ruleStart time.Time,
) (models.RuleOutcome, bool, error) {
	e.logger.InfoContext(ctx, "Executing rule", "rule_id", rule.ID, "rule_name", rule.Name, "order", rule.Order)

	// A condition mentioning previousResult gates the invocation itself;
	// any other condition is checked against the API result afterwards.
	if rule.Condition != "" && strings.Contains(rule.Condition, models.ContextPreviousResult) {
		if !e.conditions.Evaluate(rule.Condition, execCtx) {
			e.logger.InfoContext(ctx, "Pre-execution condition not met, skipping rule", "rule_id", rule.ID)
			e.appendLog(ctx, policy.ID, &rule.ID, models.StatusSkipped, execCtx, nil, "Pre-execution condition not met", ruleStart)
			e.publish(ctx, policy.ID, events.RuleExecutionSkipped{
				BaseEvent: e.baseEvent(events.RuleExecutionSkippedEvent, policy.ID),
				RuleID:    rule.ID,
				RuleName:  rule.Name,
				Reason:    "Pre-execution condition not met",
			})

			return models.RuleOutcome{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Order:    rule.Order,
				Success:  true,
				Skipped:  true,
				Reason:   "Pre-execution condition not met",
			}, false, nil
		}
	}

	apiResult, invokeErr := e.invokeRuleAction(ctx, rule, execCtx, lastResult)
	if invokeErr != nil {
		e.logger.ErrorContext(ctx, "Rule invocation failed", "rule_id", rule.ID, "rule_name", rule.Name, "error", invokeErr)
		e.appendLog(ctx, policy.ID, &rule.ID, models.StatusFailed, execCtx, nil, invokeErr.Error(), ruleStart)
		e.publish(ctx, policy.ID, events.RuleExecutionFailed{
			BaseEvent: e.baseEvent(events.RuleExecutionFailedEvent, policy.ID),
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			Error:     invokeErr.Error(),
		})

		return models.RuleOutcome{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Order:    rule.Order,
			Success:  false,
			Error:    invokeErr.Error(),
		}, false, invokeErr
	}

	// Output mapping is applied before the post-check so a skipped rule
	// still reports its mapped result. Mapping failures degrade to the raw
	// API result inside ApplyMapping.
	finalResult := apiResult

	if tmpl := rule.Action().ResultMappingTemplate(); tmpl != nil {
		mappingCtx := execCtx.Clone()
		mappingCtx[models.ContextAPIResult] = apiResult
		mappingCtx[models.ContextCurrentResult] = apiResult
		mappingCtx[models.ContextPreviousResult] = lastResult

		finalResult = template.ApplyMapping(apiResult, tmpl, mappingCtx)
	}

	if rule.Condition != "" && !strings.Contains(rule.Condition, models.ContextPreviousResult) {
		conditionCtx := execCtx.
			With(models.ContextAPIResult, apiResult).
			With(models.ContextCurrentResult, apiResult)

		if !e.conditions.Evaluate(rule.Condition, conditionCtx) {
			// The mapped result is reported but deliberately not propagated.
			e.logger.InfoContext(ctx, "Condition not met on API result, result not passed on", "rule_id", rule.ID)
			e.appendLog(ctx, policy.ID, &rule.ID, models.StatusSkipped, conditionCtx, apiResult, "Condition not met", ruleStart)
			e.publish(ctx, policy.ID, events.RuleExecutionSkipped{
				BaseEvent: e.baseEvent(events.RuleExecutionSkippedEvent, policy.ID),
				RuleID:    rule.ID,
				RuleName:  rule.Name,
				Reason:    "Condition not met on API result",
			})

			return models.RuleOutcome{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Order:    rule.Order,
				Success:  true,
				Skipped:  true,
				Reason:   "Condition not met on API result",
				Result:   finalResult,
			}, false, nil
		}
	}

	outcome := models.RuleOutcome{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Order:    rule.Order,
	}

	propagate := false

	if finalResult != nil {
		outcome.Success = true
		outcome.Result = finalResult
		propagate = true

		e.logger.InfoContext(ctx, "Rule executed successfully", "rule_id", rule.ID)
	} else {
		outcome.Success = false
		outcome.Error = "No result returned"

		e.logger.WarnContext(ctx, "Rule returned no result", "rule_id", rule.ID)
	}

	e.appendLog(ctx, policy.ID, &rule.ID, models.StatusSuccess, execCtx, finalResult, "", ruleStart)
	e.publish(ctx, policy.ID, events.RuleExecutionFinished{
		BaseEvent: e.baseEvent(events.RuleExecutionFinishedEvent, policy.ID),
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Duration:  time.Since(ruleStart),
	})

	return outcome, propagate, nil
}

// invokeRuleAction performs the rule's API call. Rules without a callApi
// action or without an API definition yield a nil result without error;
// only the HTTP call itself can fail the run.
func (e *Executor) invokeRuleAction(
	ctx context.Context,
	rule *models.Rule,
	execCtx models.ExecutionContext,
	lastResult any,
) (any, error) {
	action := rule.Action()
	if action == nil || action.Type != callAPIActionType || rule.ApiDefinition == nil {
		e.logger.WarnContext(ctx, "Rule has no executable API action", "rule_id", rule.ID)

		return nil, nil
	}

	requestData := lastResult

	if tmpl := action.RequestMappingTemplate(); tmpl != nil {
		requestData = template.ApplyMapping(lastResult, tmpl, models.ExecutionContext{})
		e.logger.InfoContext(ctx, "Applied input mapping", "rule_id", rule.ID)
	}

	return e.invoker.Invoke(ctx, rule.ApiDefinition, requestData, execCtx)
}

func (e *Executor) appendLog(
	ctx context.Context,
	policyID string,
	ruleID *string,
	status models.ExecutionStatus,
	input, output any,
	errMsg string,
	startedAt time.Time,
) {
	completedAt := time.Now().UTC()

	entry := &models.ExecutionLog{
		ID:           uuid.NewString(),
		PolicyID:     policyID,
		RuleID:       ruleID,
		Status:       status,
		Input:        serializeSnapshot(input),
		Output:       serializeSnapshot(output),
		ErrorMessage: errMsg,
		StartedAt:    startedAt,
		CompletedAt:  completedAt,
		DurationMs:   completedAt.Sub(startedAt).Milliseconds(),
	}

	if err := e.persistence.ExecutionLogs().Append(ctx, entry); err != nil {
		e.logger.WarnContext(ctx, "Failed to append execution log", "policy_id", policyID, "error", err)
	}
}

func (e *Executor) publish(ctx context.Context, policyID string, event events.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, policyID, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish execution event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Executor) baseEvent(eventType events.EventType, policyID string) events.BaseEvent {
	id := uuid.NewString()
	if e.eventBus != nil {
		id = e.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		PolicyID:  policyID,
	}
}

func serializeSnapshot(value any) string {
	if value == nil {
		return ""
	}

	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}

	return string(data)
}
