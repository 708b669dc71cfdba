// Package web provides HTTP handlers and REST API endpoints for policy management.
package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/ruleflow-io/ruleflow/pkg/executor"
	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
	"github.com/ruleflow-io/ruleflow/pkg/scheduler"
	"github.com/ruleflow-io/ruleflow/pkg/services"
)

const defaultLogLimit = 50

type APIHandlers struct {
	policyService      *services.Policy
	ruleService        *services.Rule
	scheduleService    *services.Schedule
	catalogService     *services.Catalog
	authSettingService *services.AuthSetting
	executor           *executor.Executor
	scheduler          *scheduler.Scheduler
	validator          *validator.Validate
}

func NewAPIHandlers(
	policyService *services.Policy,
	ruleService *services.Rule,
	scheduleService *services.Schedule,
	catalogService *services.Catalog,
	authSettingService *services.AuthSetting,
	exec *executor.Executor,
	sched *scheduler.Scheduler,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		policyService:      policyService,
		ruleService:        ruleService,
		scheduleService:    scheduleService,
		catalogService:     catalogService,
		authSettingService: authSettingService,
		executor:           exec,
		scheduler:          sched,
		validator:          validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.policyService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "RuleFlow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "RuleFlow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Policies

func (h *APIHandlers) GetPolicies(c fiber.Ctx) error {
	policies, err := h.policyService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(policies)
}

func (h *APIHandlers) GetPolicy(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Policy ID is required")
	}

	policy, err := h.policyService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsPolicyNotFound(err) {
			return notFound(c, "Policy not found")
		}

		return internalError(c, err)
	}

	return c.JSON(policy)
}

func (h *APIHandlers) CreatePolicy(c fiber.Ctx) error {
	var req CreatePolicyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	policy := &models.Policy{
		Name:                    req.Name,
		Description:             req.Description,
		AuthenticationSettingID: req.AuthenticationSettingID,
		Active:                  req.Active,
		Rules:                   []*models.Rule{}, // Empty - rules added separately
	}

	created, err := h.policyService.Create(c.Context(), policy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdatePolicy(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Policy ID is required")
	}

	var req UpdatePolicyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	policy := &models.Policy{
		Name:                    req.Name,
		Description:             req.Description,
		AuthenticationSettingID: req.AuthenticationSettingID,
		Active:                  req.Active,
	}

	updated, err := h.policyService.Update(c.Context(), id, policy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeletePolicy(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Policy ID is required")
	}

	if err := h.policyService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecutePolicy runs the policy synchronously and returns the aggregated
// result. An optional JSON body seeds the initial execution context.
func (h *APIHandlers) ExecutePolicy(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Policy ID is required")
	}

	var req ExecutePolicyRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	result, err := h.executor.Execute(c.Context(), id, req.InitialContext)
	if err != nil {
		if persistence.IsPolicyNotFound(err) {
			return notFound(c, "Policy not found")
		}

		if errors.Is(err, executor.ErrPolicyInactive) {
			problem := problems.NewStatusProblem(409).
				WithInstance(c.Path()).
				WithType("policy_inactive").
				WithDetail("policy is inactive")

			return c.Status(fiber.StatusConflict).JSON(problem)
		}

		return internalError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetPolicyLogs(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Policy ID is required")
	}

	limit := defaultLogLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	entries, err := h.policyService.Logs(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(entries)
}

// Rules

func (h *APIHandlers) GetPolicyRules(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Policy ID is required")
	}

	rules, err := h.ruleService.ListByPolicy(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rules)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	rule, err := h.ruleService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			return notFound(c, "Rule not found")
		}

		return internalError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req RuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.ruleService.Create(c.Context(), ruleFromRequest(&req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	var req RuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.ruleService.Update(c.Context(), id, ruleFromRequest(&req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	if err := h.ruleService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func ruleFromRequest(req *RuleRequest) *models.Rule {
	return &models.Rule{
		PolicyID:        req.PolicyID,
		ApiDefinitionID: req.ApiDefinitionID,
		Name:            req.Name,
		Description:     req.Description,
		Condition:       req.Condition,
		ActionJSON:      req.ActionJSON,
		Order:           req.Order,
		Active:          req.Active,
	}
}

// Schedules

func (h *APIHandlers) GetSchedules(c fiber.Ctx) error {
	schedules, err := h.scheduleService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(schedules)
}

func (h *APIHandlers) GetSchedule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Schedule ID is required")
	}

	schedule, err := h.scheduleService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsScheduleNotFound(err) {
			return notFound(c, "Schedule not found")
		}

		return internalError(c, err)
	}

	return c.JSON(schedule)
}

func (h *APIHandlers) CreateSchedule(c fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.scheduleService.Create(c.Context(), req.PolicyID, req.CronExpression)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateSchedule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Schedule ID is required")
	}

	var req UpdateScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.scheduleService.Update(c.Context(), id, req.CronExpression, req.Active)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteSchedule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Schedule ID is required")
	}

	if err := h.scheduleService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Scheduler control

func (h *APIHandlers) StartScheduler(c fiber.Ctx) error {
	if h.scheduler == nil {
		return notFound(c, "Scheduler is not hosted by this instance")
	}

	h.scheduler.Start()

	return c.JSON(fiber.Map{"running": true})
}

func (h *APIHandlers) StopScheduler(c fiber.Ctx) error {
	if h.scheduler == nil {
		return notFound(c, "Scheduler is not hosted by this instance")
	}

	h.scheduler.Stop()

	return c.JSON(fiber.Map{"running": false})
}

func (h *APIHandlers) SchedulerStatus(c fiber.Ctx) error {
	if h.scheduler == nil {
		return notFound(c, "Scheduler is not hosted by this instance")
	}

	return c.JSON(fiber.Map{"running": h.scheduler.IsRunning()})
}

// Authentication settings

func (h *APIHandlers) GetAuthSettings(c fiber.Ctx) error {
	settings, err := h.authSettingService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(settings)
}

func (h *APIHandlers) GetAuthSetting(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Authentication setting ID is required")
	}

	setting, err := h.authSettingService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsAuthenticationSettingNotFound(err) {
			return notFound(c, "Authentication setting not found")
		}

		return internalError(c, err)
	}

	return c.JSON(setting)
}

func (h *APIHandlers) CreateAuthSetting(c fiber.Ctx) error {
	var req AuthSettingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.authSettingService.Create(c.Context(), authSettingFromRequest(&req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateAuthSetting(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Authentication setting ID is required")
	}

	var req AuthSettingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.authSettingService.Update(c.Context(), id, authSettingFromRequest(&req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteAuthSetting(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Authentication setting ID is required")
	}

	if err := h.authSettingService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func authSettingFromRequest(req *AuthSettingRequest) *models.AuthenticationSetting {
	return &models.AuthenticationSetting{
		Name:                 req.Name,
		TokenEndpoint:        req.TokenEndpoint,
		Username:             req.Username,
		Password:             req.Password,
		GrantType:            req.GrantType,
		ClientID:             req.ClientID,
		ClientSecret:         req.ClientSecret,
		Scope:                req.Scope,
		AdditionalParameters: req.AdditionalParameters,
		Active:               req.Active,
	}
}

// Swagger sources

func (h *APIHandlers) GetSwaggerSources(c fiber.Ctx) error {
	sources, err := h.catalogService.ListSwaggerSources(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(sources)
}

func (h *APIHandlers) GetSwaggerSource(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Swagger source ID is required")
	}

	source, err := h.catalogService.FetchSwaggerSource(c.Context(), id)
	if err != nil {
		if persistence.IsSwaggerSourceNotFound(err) {
			return notFound(c, "Swagger source not found")
		}

		return internalError(c, err)
	}

	return c.JSON(source)
}

func (h *APIHandlers) CreateSwaggerSource(c fiber.Ctx) error {
	var req SwaggerSourceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.catalogService.CreateSwaggerSource(c.Context(), &models.SwaggerSource{
		Name:       req.Name,
		SwaggerURL: req.SwaggerURL,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateSwaggerSource(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Swagger source ID is required")
	}

	var req SwaggerSourceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.catalogService.UpdateSwaggerSource(c.Context(), id, &models.SwaggerSource{
		Name:       req.Name,
		SwaggerURL: req.SwaggerURL,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteSwaggerSource(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Swagger source ID is required")
	}

	if err := h.catalogService.DeleteSwaggerSource(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// API definitions

func (h *APIHandlers) GetApiDefinitions(c fiber.Ctx) error {
	definitions, err := h.catalogService.ListApiDefinitions(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definitions)
}

func (h *APIHandlers) GetApiDefinition(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "API definition ID is required")
	}

	definition, err := h.catalogService.FetchApiDefinition(c.Context(), id)
	if err != nil {
		if persistence.IsApiDefinitionNotFound(err) {
			return notFound(c, "API definition not found")
		}

		return internalError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) CreateApiDefinition(c fiber.Ctx) error {
	var req ApiDefinitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.catalogService.CreateApiDefinition(c.Context(), apiDefinitionFromRequest(&req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateApiDefinition(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "API definition ID is required")
	}

	var req ApiDefinitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.catalogService.UpdateApiDefinition(c.Context(), id, apiDefinitionFromRequest(&req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteApiDefinition(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "API definition ID is required")
	}

	if err := h.catalogService.DeleteApiDefinition(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func apiDefinitionFromRequest(req *ApiDefinitionRequest) *models.ApiDefinition {
	return &models.ApiDefinition{
		SwaggerSourceID: req.SwaggerSourceID,
		Name:            req.Name,
		Path:            req.Path,
		Method:          req.Method,
		Description:     req.Description,
		RequestSchema:   req.RequestSchema,
		ResponseSchema:  req.ResponseSchema,
		Parameters:      req.Parameters,
		RequiresAuth:    req.RequiresAuth,
	}
}
