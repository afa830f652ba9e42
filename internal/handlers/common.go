// common.go
//
// Maintenance tracking and materials request data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of maintdb.
// maintdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// maintdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with maintdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/maintdb/internal/editor"
	"github.com/localnerve/maintdb/internal/types"
	"github.com/localnerve/maintdb/internal/utils"
	"go.uber.org/zap"
)

// parseSearch extracts the search text from query parameters,
// supporting multiple 'q' keys.
func parseSearch(c *fiber.Ctx) string {
	var terms []string

	args := c.Context().QueryArgs()
	for key, value := range args.All() {
		if string(key) == "q" {
			if v := strings.TrimSpace(string(value)); v != "" {
				terms = append(terms, v)
			}
		}
	}

	return strings.Join(terms, " ")
}

// parseBody decodes the JSON body into out, reporting malformed input as a
// validation error.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return types.Invalid("body", "invalid request body: "+err.Error())
	}
	return nil
}

// respondError renders err in the JSON error envelope. Unexpected errors are
// logged and reported as 500 with errorType.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error, errorType string) error {
	var (
		verr   *types.ValidationError
		refErr *types.ReferencedError
		cerr   *types.CustomError
		ferr   *fiber.Error
	)

	switch {
	case errors.As(err, &verr):
		return utils.ErrorResponse(c, verr.Message, fiber.StatusBadRequest, verr.Type())
	case errors.Is(err, types.ErrVersion):
		return utils.VersionErrorResponse(c)
	case errors.Is(err, types.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.As(err, &refErr):
		return utils.ErrorResponse(c, refErr.Error(), fiber.StatusConflict, "data.integrity.referenced")
	case errors.Is(err, types.ErrNoDefaultStatus):
		return utils.ErrorResponse(c, "No default request status is configured", fiber.StatusUnprocessableEntity, "data.request.no_default_status")
	case errors.Is(err, types.ErrCancelled):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusRequestTimeout, "cancelled")
	case errors.Is(err, editor.ErrClosed), errors.Is(err, editor.ErrBusy):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "data.session")
	case errors.As(err, &cerr):
		return utils.ErrorResponse(c, cerr.Message, cerr.Code, cerr.Type)
	case errors.As(err, &ferr):
		return utils.ErrorResponse(c, ferr.Message, ferr.Code, "http")
	}

	logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("url", c.OriginalURL()),
		zap.String("type", errorType),
		zap.Error(err),
	)
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
}

// ErrorHandler handles errors returned by middleware and handlers globally
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := err.Error()
		errorType := "unknown"

		// Check if it's a Fiber error
		var ferr *fiber.Error
		var cerr *types.CustomError
		if errors.As(err, &ferr) {
			code = ferr.Code
			message = ferr.Message
		} else if errors.As(err, &cerr) {
			code = cerr.Code
			message = cerr.Message
			errorType = cerr.Type
		}

		// Check for version errors
		versionError := false
		if errors.Is(err, types.ErrVersion) || strings.HasPrefix(message, "E_VERSION") {
			versionError = true
			errorType = "version"
			code = fiber.StatusConflict
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled error", zap.String("url", c.OriginalURL()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"status":       code,
			"message":      message,
			"ok":           false,
			"versionError": versionError,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"url":          c.OriginalURL(),
			"type":         errorType,
		})
	}
}

// NotFound is the fallback for unknown routes
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}
