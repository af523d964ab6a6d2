package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/toncenter/ton-indexer/ton-tracing-go/index"
	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

//	@title			TON Tracing (Go)
//	@version		1.0.0
//	@description	TON Tracing builds message trace trees with decoded payloads and failure analysis for indexed and emulated traces.
//  @query.collection.format multi

// @summary		Get trace
// @description	Build the trace tree of a message with the default allowed exit codes.
// @id	api_v3_get_trace
// @tags	traces
// @Accept       json
// @Produce      json
// @success		200	{object}	index.TraceResponse
// @failure		400	{object}	index.IndexError
// @failure		404	{object}	index.IndexError
// @param	msg_hash query string true "Message hash. Can be sent in hex, base64 or base64url form."
// @param	emulated query bool false "Read the trace from emulated traces." default(false)
// @router			/api/v3/trace [get]
func GetTrace(c *fiber.Ctx) error {
	var req index.TraceRequest
	if err := c.QueryParser(&req); err != nil {
		return index.IndexError{Code: 422, Message: err.Error()}
	}
	return buildTrace(c, req)
}

// @summary		Build trace
// @description	Build the trace tree of a message. Allowed exit codes from the request are added to the defaults for this request only.
// @id	api_v3_post_trace
// @tags	traces
// @Accept       json
// @Produce      json
// @param	request	body	index.TraceRequest	true	"Trace request"
// @success		200	{object}	index.TraceResponse
// @failure		400	{object}	index.IndexError
// @failure		404	{object}	index.IndexError
// @router			/api/v3/trace [post]
func PostTrace(c *fiber.Ctx) error {
	var req index.TraceRequest
	if err := c.BodyParser(&req); err != nil {
		return asIndexError(err, 422)
	}
	if req.AllowedCodes != nil {
		codes, err := req.AllowedCodes.NormalizeAddresses()
		if err != nil {
			return index.IndexError{Code: 422, Message: err.Error()}
		}
		req.AllowedCodes = &codes
	}
	return buildTrace(c, req)
}

func buildTrace(c *fiber.Ctx, req index.TraceRequest) error {
	if len(req.MsgHash) == 0 {
		return index.IndexError{Code: 422, Message: "msg_hash is required"}
	}
	src, err := sourceFor(req.Emulated)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	if settings.Request.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Request.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := tracer.Trace(ctx, src, trace.TraceParams{
		MsgHash:      string(req.MsgHash),
		AllowedCodes: req.AllowedCodes,
	})
	if err != nil {
		err = traceError(err)
		observeTrace(resultLabel(err), time.Since(start), 0)
		return err
	}
	observeTrace("ok", time.Since(start), res.Nodes)
	return c.JSON(index.NewTraceResponse(res))
}

func traceError(err error) error {
	switch {
	case errors.Is(err, trace.ErrMessageNotFound):
		return index.IndexError{Code: 404, Message: "message not found"}
	case errors.Is(err, context.DeadlineExceeded):
		return index.IndexError{Code: 504, Message: "trace request timed out"}
	}
	return asIndexError(err, 500)
}

func asIndexError(err error, code int) error {
	var ierr index.IndexError
	if errors.As(err, &ierr) {
		return ierr
	}
	return index.IndexError{Code: code, Message: err.Error()}
}

// @summary		Get allowed codes
// @description	Get the default allowed exit codes. With *address* the effective codes for that contract are returned as well.
// @id	api_v3_get_allowed_codes
// @tags	traces
// @Produce      json
// @param	address query string false "Contract address. Can be sent in raw, base64 or base64url form."
// @success		200	{object}	index.AllowedCodesResponse
// @failure		422	{object}	index.IndexError
// @router			/api/v3/allowedCodes [get]
func GetAllowedCodes(c *fiber.Ctx) error {
	var req index.AllowedCodesRequest
	if err := c.QueryParser(&req); err != nil {
		return index.IndexError{Code: 422, Message: err.Error()}
	}
	return allowedCodesResponse(c, req)
}

// @summary		Add allowed codes
// @description	Add exit codes to the defaults. With *address* the body is a code list for that contract.
// @id	api_v3_post_allowed_codes
// @tags	traces
// @Accept       json
// @Produce      json
// @param	address query string false "Contract address."
// @param	request	body	trace.AllowedCodes	true	"Allowed codes"
// @success		200	{object}	index.AllowedCodesResponse
// @failure		422	{object}	index.IndexError
// @router			/api/v3/allowedCodes [post]
func PostAllowedCodes(c *fiber.Ctx) error {
	return updateAllowedCodes(c, tracer.SetAllowedCodes, tracer.AllowCodesForAddress)
}

// @summary		Remove allowed codes
// @description	Remove exit codes from the defaults. With *address* the body is a code list for that contract.
// @id	api_v3_delete_allowed_codes
// @tags	traces
// @Accept       json
// @Produce      json
// @param	address query string false "Contract address."
// @param	request	body	trace.AllowedCodes	true	"Allowed codes"
// @success		200	{object}	index.AllowedCodesResponse
// @failure		422	{object}	index.IndexError
// @router			/api/v3/allowedCodes [delete]
func DeleteAllowedCodes(c *fiber.Ctx) error {
	return updateAllowedCodes(c, tracer.RemoveAllowedCodes, tracer.RemoveAllowedCodesForAddress)
}

func updateAllowedCodes(c *fiber.Ctx, apply func(trace.AllowedCodes), applyForAddress func(string, trace.CodeList)) error {
	var req index.AllowedCodesRequest
	if err := c.QueryParser(&req); err != nil {
		return index.IndexError{Code: 422, Message: err.Error()}
	}
	if req.Address != nil {
		var codes trace.CodeList
		if err := c.BodyParser(&codes); err != nil {
			return index.IndexError{Code: 422, Message: err.Error()}
		}
		applyForAddress(req.Address.String(), codes)
	} else {
		var codes trace.AllowedCodes
		if err := c.BodyParser(&codes); err != nil {
			return index.IndexError{Code: 422, Message: err.Error()}
		}
		codes, err := codes.NormalizeAddresses()
		if err != nil {
			return index.IndexError{Code: 422, Message: err.Error()}
		}
		apply(codes)
	}
	logger.WithFields(logrus.Fields{
		"method":  c.Method(),
		"address": c.Query("address"),
	}).Info("allowed codes updated")
	return allowedCodesResponse(c, req)
}

func allowedCodesResponse(c *fiber.Ctx, req index.AllowedCodesRequest) error {
	resp := index.AllowedCodesResponse{AllowedCodes: tracer.AllowedCodes()}
	if req.Address != nil {
		effective := resp.AllowedCodes.ForAddress(req.Address.String())
		resp.Effective = &effective
	}
	return c.JSON(resp)
}

// HealthCheck pings the configured backends.
func HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
	defer cancel()
	if pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return index.IndexError{Code: 503, Message: "database is unavailable"}
		}
	}
	if emulatedRepo != nil {
		if err := emulatedRepo.Rdb.Ping(ctx).Err(); err != nil {
			return index.IndexError{Code: 503, Message: "redis is unavailable"}
		}
	}
	return c.Status(200).SendString("OK")
}

func ErrorHandlerFunc(ctx *fiber.Ctx, err error) error {
	ip := ctx.IP()
	if ips := ctx.IPs(); len(ips) > 0 {
		ip = ips[0]
	}
	fields := logrus.Fields{
		"path":    ctx.Path(),
		"ip":      ip,
		"queries": ctx.Queries(),
	}

	switch e := err.(type) {
	case index.IndexError:
		if e.Code != 404 {
			logger.WithFields(fields).WithField("code", e.Code).Warn(e.Message)
		}
		return ctx.Status(e.Code).JSON(e)
	case *fiber.Error:
		return ctx.Status(e.Code).JSON(index.IndexError{Code: e.Code, Message: e.Message})
	default:
		logger.WithFields(fields).WithError(err).Error("request failed")
		resp := map[string]string{}
		resp["error"] = fmt.Sprintf("internal server error: %s", err.Error())
		return ctx.Status(fiber.StatusInternalServerError).JSON(resp)
	}
}
