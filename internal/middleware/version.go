package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// APIVersion represents API version information
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active", "deprecated"
	SunsetDate *time.Time `json:"sunsetDate,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware stamps API version headers on responses
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
}

// NewVersionMiddleware creates a new version middleware instance
func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {
				Version: "v1",
				Status:  "active",
				Message: "Current stable API version",
			},
		},
	}
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)

			if ver, exists := vm.supportedVersions[version]; exists {
				if ver.Status == "deprecated" && ver.SunsetDate != nil {
					h.Set("X-API-Deprecated", "true")
					h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
				}
				h.Set("X-API-Message", ver.Message)
			}

			return next(c)
		}
	}
}

// Deprecate marks version as deprecated with the given sunset date
func (vm *VersionMiddleware) Deprecate(version string, sunsetDate time.Time, message string) {
	vm.supportedVersions[version] = APIVersion{
		Version:    version,
		Status:     "deprecated",
		SunsetDate: &sunsetDate,
		Message:    message,
	}
}
