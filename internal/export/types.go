// Package export saves the displayed composite to the photo store.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// State is a step of one export request.
type State int

const (
	Idle State = iota
	Rasterizing
	Authorizing
	Persisting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rasterizing:
		return "rasterizing"
	case Authorizing:
		return "authorizing"
	case Persisting:
		return "persisting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether the save affordance should be disabled.
func (s State) Active() bool {
	return s == Rasterizing || s == Authorizing || s == Persisting
}

// AuthStatus is the photo store's write authorization.
type AuthStatus int

const (
	NotDetermined AuthStatus = iota
	Authorized
	Denied
	// Restricted means the user cannot grant access at all.
	Restricted
)

func (a AuthStatus) String() string {
	switch a {
	case NotDetermined:
		return "not_determined"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	default:
		return fmt.Sprintf("auth(%d)", int(a))
	}
}

// Rasterizer captures the currently displayed composite.
type Rasterizer interface {
	Rasterize(ctx context.Context) (image.Image, error)
}

// RasterizerFunc adapts a function to Rasterizer.
type RasterizerFunc func(ctx context.Context) (image.Image, error)

func (f RasterizerFunc) Rasterize(ctx context.Context) (image.Image, error) { return f(ctx) }

// PhotoStore is the persistent destination for exports.
type PhotoStore interface {
	AuthorizationStatus(ctx context.Context) (AuthStatus, error)
	// RequestAuthorization may wait on the user indefinitely.
	RequestAuthorization(ctx context.Context) (AuthStatus, error)
	// Write persists img into album and calls done once with the new asset id.
	Write(img image.Image, album string, done func(assetID string, err error))
}

// SettingsOpener takes the user to the place where access can be granted.
// Constrained hosts return false from CanOpenSettings.
type SettingsOpener interface {
	CanOpenSettings() bool
	OpenSettings() error
}

// Result of a successful export.
type Result struct {
	AssetID  string
	Album    string
	TipFired bool
}

// ErrRasterization marks a failure to capture the composite.
var ErrRasterization = errors.New("could not capture the image")

const (
	deniedMessage      = "Could not access the photo library. Please allow access in Settings."
	deniedPlainMessage = "Could not access the photo library."
)

// PermissionDeniedError is returned when the photo store refuses writes.
type PermissionDeniedError struct {
	Status            AuthStatus
	RecoveryAvailable bool
	opener            SettingsOpener
}

func (e *PermissionDeniedError) Error() string {
	if e.RecoveryAvailable {
		return deniedMessage
	}
	return deniedPlainMessage
}

// Recover opens the settings when recovery is available.
func (e *PermissionDeniedError) Recover() error {
	if !e.RecoveryAvailable || e.opener == nil {
		return errors.New("no recovery action available")
	}
	return e.opener.OpenSettings()
}

// RasterizationError wraps the underlying capture failure.
type RasterizationError struct {
	Err error
}

func (e *RasterizationError) Error() string {
	if e.Err == nil {
		return ErrRasterization.Error()
	}
	return fmt.Sprintf("%s: %v", ErrRasterization, e.Err)
}

func (e *RasterizationError) Is(target error) bool { return target == ErrRasterization }
func (e *RasterizationError) Unwrap() error        { return e.Err }

// WriteError carries the photo store's failure message verbatim.
type WriteError struct {
	Message string
	Err     error
}

func (e *WriteError) Error() string { return e.Message }
func (e *WriteError) Unwrap() error { return e.Err }
