// Package channel dispatches method calls from the application shell to the
// B2C provider.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"b2c-hub/internal/domain"
	"b2c-hub/metrics"

	"github.com/go-playground/validator/v10"
)

// Method names accepted by the dispatcher.
const (
	MethodInit                     = "init"
	MethodPolicyTriggerInteractive = "policyTriggerInteractive"
	MethodPolicyTriggerSilently    = "policyTriggerSilently"
	MethodSignOut                  = "signOut"
	MethodGetConfiguration         = "getConfiguration"
	MethodGetSubjects              = "getSubjects"
	MethodHasSubject               = "hasSubject"
	MethodGetSubjectInfo           = "getSubjectInfo"
	MethodGetAccessToken           = "getAccessToken"
	MethodHandleRedirectFuture     = "handleRedirectFuture"
)

// RedirectHandledValue is returned by handleRedirectFuture. Redirects are
// completed inside the platform client, so there is nothing to hand back.
const RedirectHandledValue = "B2C_PLUGIN_DEFAULT"

// Provider is the auth facade the dispatcher drives.
type Provider interface {
	Go(ctx context.Context, fn func(ctx context.Context))
	Initialize(ctx context.Context, fileName string) domain.OperationResult
	AcquireTokenInteractive(ctx context.Context, policyName string, scopes []string, loginHint string) domain.OperationResult
	AcquireTokenSilent(ctx context.Context, subject, tag, policyName string, scopes []string) domain.OperationResult
	SignOut(ctx context.Context, subject, tag string) domain.OperationResult
	Initialized() bool
	Configuration() (*domain.Configuration, error)
	Subjects() ([]string, error)
	HasSubject(subject string) bool
	User(subject string) (domain.User, error)
	AccessToken(subject string) (*domain.AuthResult, error)
}

// MethodCall is one invocation from the application shell.
type MethodCall struct {
	Method string
	Args   json.RawMessage
}

// Dispatcher validates method arguments and calls the provider. Every call
// returns either a value or a *MethodError.
type Dispatcher struct {
	provider Provider
	validate *validator.Validate
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher for provider.
func NewDispatcher(p Provider, l *slog.Logger) *Dispatcher {
	return &Dispatcher{provider: p, validate: newValidator(), logger: l}
}

// Handle runs call. Asynchronous methods return nil once the operation has
// been started; its outcome arrives as an event.
func (d *Dispatcher) Handle(ctx context.Context, call MethodCall) (any, *MethodError) {
	started := time.Now()

	result, merr := d.dispatch(ctx, call)

	label, status := call.Method, "ok"
	if merr != nil {
		status = merr.Code
		if merr.Code == CodeNotImplemented {
			label = "unknown"
		}
		d.logger.DebugContext(ctx, "method call rejected", "method", call.Method, "code", merr.Code, "message", merr.Message)
	}
	metrics.RecordMethodCall(label, status, time.Since(started).Seconds())
	return result, merr
}

func (d *Dispatcher) dispatch(ctx context.Context, call MethodCall) (any, *MethodError) {
	switch call.Method {
	case MethodInit:
		return d.init(ctx, call.Args)
	case MethodPolicyTriggerInteractive:
		return d.policyTriggerInteractive(ctx, call.Args)
	case MethodPolicyTriggerSilently:
		return d.policyTriggerSilently(ctx, call.Args)
	case MethodSignOut:
		return d.signOut(ctx, call.Args)
	case MethodGetConfiguration:
		cfg, err := d.provider.Configuration()
		if err != nil {
			return nil, toMethodError(err)
		}
		return newConfigurationView(cfg), nil
	case MethodGetSubjects:
		subjects, err := d.provider.Subjects()
		if err != nil {
			return nil, toMethodError(err)
		}
		return subjectsView{Subjects: subjects}, nil
	case MethodHasSubject:
		var args subjectArgs
		if merr := decodeArgs(d.validate, call.Args, &args); merr != nil {
			return nil, merr
		}
		return d.provider.HasSubject(args.Subject), nil
	case MethodGetSubjectInfo:
		return d.getSubjectInfo(call.Args)
	case MethodGetAccessToken:
		return d.getAccessToken(call.Args)
	case MethodHandleRedirectFuture:
		return RedirectHandledValue, nil
	default:
		return nil, &MethodError{
			Code:    CodeNotImplemented,
			Message: fmt.Sprintf("method %q is not implemented", call.Method),
		}
	}
}

func (d *Dispatcher) init(ctx context.Context, raw json.RawMessage) (any, *MethodError) {
	var args initArgs
	if merr := decodeArgs(d.validate, raw, &args); merr != nil {
		return nil, merr
	}

	d.provider.Go(ctx, func(ctx context.Context) {
		d.provider.Initialize(ctx, args.ConfigFile)
	})
	return nil, nil
}

func (d *Dispatcher) policyTriggerInteractive(ctx context.Context, raw json.RawMessage) (any, *MethodError) {
	var args interactiveArgs
	if merr := decodeArgs(d.validate, raw, &args); merr != nil {
		return nil, merr
	}
	if !d.provider.Initialized() {
		return nil, toMethodError(domain.ErrNotInitialized)
	}

	loginHint := ""
	if args.LoginHint != nil {
		loginHint = *args.LoginHint
	}
	d.provider.Go(ctx, func(ctx context.Context) {
		d.provider.AcquireTokenInteractive(ctx, args.PolicyName, args.Scopes, loginHint)
	})
	return nil, nil
}

func (d *Dispatcher) policyTriggerSilently(ctx context.Context, raw json.RawMessage) (any, *MethodError) {
	var args silentArgs
	if merr := decodeArgs(d.validate, raw, &args); merr != nil {
		return nil, merr
	}
	if _, err := d.provider.User(args.Subject); err != nil {
		return nil, toMethodError(err)
	}

	d.provider.Go(ctx, func(ctx context.Context) {
		d.provider.AcquireTokenSilent(ctx, args.Subject, args.Tag, args.PolicyName, args.Scopes)
	})
	return nil, nil
}

func (d *Dispatcher) signOut(ctx context.Context, raw json.RawMessage) (any, *MethodError) {
	var args signOutArgs
	if merr := decodeArgs(d.validate, raw, &args); merr != nil {
		return nil, merr
	}
	if _, err := d.provider.User(args.Subject); err != nil {
		return nil, toMethodError(err)
	}

	d.provider.Go(ctx, func(ctx context.Context) {
		d.provider.SignOut(ctx, args.Subject, args.Tag)
	})
	return nil, nil
}

func (d *Dispatcher) getSubjectInfo(raw json.RawMessage) (any, *MethodError) {
	var args subjectArgs
	if merr := decodeArgs(d.validate, raw, &args); merr != nil {
		return nil, merr
	}
	u, err := d.provider.User(args.Subject)
	if err != nil {
		return nil, toMethodError(err)
	}
	return newSubjectInfoView(u), nil
}

func (d *Dispatcher) getAccessToken(raw json.RawMessage) (any, *MethodError) {
	var args subjectArgs
	if merr := decodeArgs(d.validate, raw, &args); merr != nil {
		return nil, merr
	}
	res, err := d.provider.AccessToken(args.Subject)
	if err != nil {
		return nil, toMethodError(err)
	}
	return newAccessTokenView(args.Subject, res), nil
}
