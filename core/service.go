package core

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service orchestrates request building, delivery, retry, and the execution
// log. One Trigger invocation runs as a sequential chain of attempts; the
// backoff wait suspends only that invocation's goroutine. All cross-call
// state lives in the external store.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	transport       Transport
	store           LogStore
	clock           Clock
	idGenerator     IDGenerator
	sleeper         Sleeper
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Transport       Transport
	Store           LogStore
	Clock           Clock
	IDGenerator     IDGenerator
	Sleeper         Sleeper
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("webhooks", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("webhooks"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = func() time.Time { return time.Now().UTC() }
	}
	if builder.idGenerator == nil {
		builder.idGenerator = defaultIDGenerator
	}
	if builder.sleeper == nil {
		builder.sleeper = contextSleep
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	service := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		transport:       builder.transport,
		store:           builder.store,
		clock:           builder.clock,
		idGenerator:     builder.idGenerator,
		sleeper:         builder.sleeper,
	}

	if finalConfig.Storage.AutoProvision && service.store != nil {
		// Fire-and-forget provisioning; failure is logged, never surfaced.
		go service.provisionTable()
	}

	return service, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Transport:       s.transport,
		Store:           s.store,
		Clock:           s.clock,
		IDGenerator:     s.idGenerator,
		Sleeper:         s.sleeper,
	}
}

// Trigger dispatches one logical webhook call: validate once up front, then
// run a bounded build-send-record loop. Delivery failures are absorbed into
// FAIL records and retried with capped linear backoff; only validation and
// storage problems surface as errors. The returned record is the final
// attempt's.
func (s *Service) Trigger(ctx context.Context, in TriggerInput) (result Log, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"namespace": in.Namespace,
		"url":       in.RequestURL,
		"method":    in.ResolveMethod(),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "trigger", err, fields)
	}()

	if err = ValidateTriggerInput(in); err != nil {
		return Log{}, err
	}
	if s.transport == nil {
		err = s.mapError(ErrTransportNotConfigured)
		return Log{}, err
	}
	if s.store == nil {
		err = s.mapError(ErrStoreNotConfigured)
		return Log{}, err
	}

	// Arguments are fixed after the validation pass, so the wire request is
	// built once and reused across attempts.
	wire, buildErr := BuildRequest(RequestSpec{
		Method:  in.ResolveMethod(),
		URL:     in.RequestURL,
		Headers: in.RequestHeaders,
		Body:    in.RequestBody,
	})
	if buildErr != nil {
		err = s.mapError(buildErr)
		return Log{}, err
	}

	limit := in.ResolveRetryLimit()
	fields["retry_limit"] = limit

	var record Log
	for count := 0; ; count++ {
		response := s.send(ctx, wire)
		record, err = s.record(ctx, in, wire, response, count, limit)
		if err != nil {
			return Log{}, err
		}
		if response.OK || count == limit {
			fields["attempts"] = count + 1
			fields["delivery_status"] = string(record.Status)
			return record, nil
		}
		if waitErr := s.sleeper(ctx, s.backoff(count)); waitErr != nil {
			err = s.mapError(waitErr)
			return Log{}, err
		}
	}
}

// send invokes the transport and converts any network-level failure into a
// synthetic failed response, so delivery and protocol failures are
// indistinguishable to the retry decision.
func (s *Service) send(ctx context.Context, wire WireRequest) WireResponse {
	response, err := s.transport.Send(ctx, wire)
	if err != nil {
		return syntheticFailure(err)
	}
	return response
}

func syntheticFailure(err error) WireResponse {
	description, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		description = []byte(`{"error":"transport failure"}`)
	}
	return WireResponse{
		Status: 500,
		OK:     false,
		Body:   string(description),
	}
}

// record writes exactly one log record for the current attempt. Each attempt
// gets a fresh time-ordered id; attempts are siblings, not updates.
func (s *Service) record(
	ctx context.Context,
	in TriggerInput,
	wire WireRequest,
	response WireResponse,
	count int,
	limit int,
) (Log, error) {
	now := s.now()
	status := LogStatusFail
	if response.OK {
		status = LogStatusSuccess
	}
	log := ShapeLog(Log{
		ID:        strings.TrimSpace(in.IDPrefix) + s.idGenerator(),
		Namespace: in.Namespace,
		Request: LogRequest{
			Method:  wire.Method,
			URL:     wire.URL,
			Headers: flattenHeaders(wire.Headers),
			Body:    string(wire.Body),
		},
		Response: LogResponse{
			Status:  response.Status,
			OK:      response.OK,
			Headers: copyStringMap(response.Headers),
			Body:    response.Body,
		},
		Retry:    Retry{Count: count, Limit: limit},
		Status:   status,
		TTL:      now.Unix() + s.config.Storage.TTLSeconds,
		Metadata: copyAnyMap(in.Metadata),
	}, now)

	stored, err := s.putLog(ctx, log)
	if err != nil {
		return Log{}, err
	}
	return stored, nil
}

// putLog validates, persists, and re-shapes the stored echo, guarding
// against a store that returns a partial record.
func (s *Service) putLog(ctx context.Context, log Log) (Log, error) {
	if err := ValidateLog(log); err != nil {
		return Log{}, s.mapError(err)
	}
	stored, err := s.store.Put(ctx, log)
	if err != nil {
		return Log{}, s.mapStoreError(err)
	}
	return ShapeLog(stored, s.now()), nil
}

// FetchLogs compiles the filter into an index query plan, delegates to the
// store, and returns a shaped page plus the continuation cursor.
func (s *Service) FetchLogs(ctx context.Context, in FetchLogsInput) (page LogPage, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"namespace": in.Namespace,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "fetch_logs", err, fields)
	}()

	if err = ValidateFetchLogsInput(in); err != nil {
		return LogPage{}, err
	}
	if s.store == nil {
		err = s.mapError(ErrStoreNotConfigured)
		return LogPage{}, err
	}

	plan := CompileQuery(in)
	page, err = s.store.Query(ctx, plan)
	if err != nil {
		err = s.mapStoreError(err)
		return LogPage{}, err
	}
	now := s.now()
	for i := range page.Items {
		page.Items[i] = ShapeLog(page.Items[i], now)
	}
	page.Count = len(page.Items)
	fields["count"] = page.Count
	return page, nil
}

// ClearLogs deletes every record under the namespace and reports how many
// were removed. Lifecycle and test cleanup only; not part of delivery flow.
func (s *Service) ClearLogs(ctx context.Context, namespace string) (result ClearResult, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"namespace": namespace,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "clear_logs", err, fields)
	}()

	if strings.TrimSpace(namespace) == "" {
		err = validationError([]goerrors.FieldError{{
			Field:   "namespace",
			Message: "namespace is required",
		}})
		return ClearResult{}, err
	}
	if s.store == nil {
		err = s.mapError(ErrStoreNotConfigured)
		return ClearResult{}, err
	}

	result, err = s.store.Clear(ctx, namespace)
	if err != nil {
		err = s.mapStoreError(err)
		return ClearResult{}, err
	}
	fields["count"] = result.Count
	return result, nil
}

// backoff computes the capped linear delay before the next attempt:
// min(base*(count+1), max), with count the 0-based attempt index.
func (s *Service) backoff(count int) time.Duration {
	base := s.config.Retry.BaseDelayMS
	max := s.config.Retry.MaxDelayMS
	if base <= 0 {
		base = 500
	}
	if max <= 0 {
		max = 3000
	}
	delay := base * (count + 1)
	if delay > max {
		delay = max
	}
	return time.Duration(delay) * time.Millisecond
}

func (s *Service) provisionTable() {
	ctx := context.Background()
	if err := s.store.EnsureTable(ctx); err != nil {
		s.logError(ctx, "table provisioning failed", map[string]any{
			"table": s.config.Storage.Table,
			"error": err.Error(),
		})
	}
}

func (s *Service) now() time.Time {
	if s == nil || s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// mapStoreError wraps store failures in an external-category envelope while
// preserving the underlying message; storage problems are surfaced, never
// retried here.
func (s *Service) mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureWebhookErrorEnvelope(richErr)
	}
	return ensureWebhookErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryExternal, "core: log store operation failed").
			WithTextCode(WebhookErrorStoreFailed),
	)
}

func flattenHeaders(headers map[string][]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	flattened := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		flattened[key] = values[0]
	}
	return flattened
}

func defaultIDGenerator() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
