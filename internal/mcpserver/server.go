// Package mcpserver exposes customers, recordings and settings as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
	"github.com/skydreamer0/VOICEAPP/internal/location"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
	"github.com/skydreamer0/VOICEAPP/internal/settings"
	"github.com/skydreamer0/VOICEAPP/internal/version"
)

// Deps are the stores the tools read and write.
type Deps struct {
	Customers  *customer.Store
	Recordings *recording.Store
	Settings   *settings.Store
	Location   location.Provider
}

type handlers struct {
	Deps
}

// New builds the MCP server with every tool registered.
func New(deps Deps) *server.MCPServer {
	s := server.NewMCPServer("voiceapp", version.Version, server.WithToolCapabilities(false))
	h := &handlers{Deps: deps}

	s.AddTool(mcp.NewTool("list_customers",
		mcp.WithDescription("List every customer with name, address, phone and coordinates."),
	), h.listCustomers)

	s.AddTool(mcp.NewTool("nearby_customers",
		mcp.WithDescription("List customers within a radius of a position, nearest first. Without coordinates the device position is used."),
		mcp.WithNumber("latitude", mcp.Description("Latitude in degrees")),
		mcp.WithNumber("longitude", mcp.Description("Longitude in degrees")),
		mcp.WithNumber("radius_km", mcp.Description("Search radius in kilometres"), mcp.DefaultNumber(customer.DefaultRadiusKm)),
	), h.nearbyCustomers)

	s.AddTool(mcp.NewTool("list_recordings",
		mcp.WithDescription("List recordings, newest first, optionally filtered by customer names, date range and duration."),
		mcp.WithArray("customer_names", mcp.Description("Only recordings for these customer names"), mcp.WithStringItems()),
		mcp.WithString("from", mcp.Description("Earliest creation date (YYYY-MM-DD as a UTC day, or RFC 3339)")),
		mcp.WithString("to", mcp.Description("Latest creation date, whole UTC day inclusive (YYYY-MM-DD or RFC 3339)")),
		mcp.WithNumber("min_seconds", mcp.Description("Minimum duration in seconds")),
		mcp.WithNumber("max_seconds", mcp.Description("Maximum duration in seconds")),
	), h.listRecordings)

	s.AddTool(mcp.NewTool("delete_recordings",
		mcp.WithDescription("Delete recordings by id, together with their audio files."),
		mcp.WithArray("ids", mcp.Required(), mcp.Description("Recording ids"), mcp.WithStringItems()),
	), h.deleteRecordings)

	s.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the audio and application settings."),
	), h.getSettings)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(deps Deps) error {
	return server.ServeStdio(New(deps))
}

func (h *handlers) listCustomers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.Customers.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (h *handlers) nearbyCustomers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, hasLat := args["latitude"]
	_, hasLon := args["longitude"]

	var pos geo.Coords
	switch {
	case hasLat && hasLon:
		pos.Latitude = req.GetFloat("latitude", 0)
		pos.Longitude = req.GetFloat("longitude", 0)
	case hasLat || hasLon:
		return mcp.NewToolResultError("latitude and longitude must be given together"), nil
	default:
		c, err := h.Location.Current(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		pos = c
	}
	if err := pos.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	list, err := h.Customers.Nearby(ctx, pos, req.GetFloat("radius_km", customer.DefaultRadiusKm))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (h *handlers) listRecordings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var c recording.Criteria
	c.CustomerNames = req.GetStringSlice("customer_names", nil)

	from, to := req.GetString("from", ""), req.GetString("to", "")
	if from != "" || to != "" {
		dr := &recording.DateRange{}
		var err error
		if from != "" {
			if dr.Start, err = recording.ParseBound(from, false); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		if to != "" {
			if dr.End, err = recording.ParseBound(to, true); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		c.DateRange = dr
	}

	minSec, maxSec := req.GetFloat("min_seconds", 0), req.GetFloat("max_seconds", 0)
	if minSec > 0 || maxSec > 0 {
		c.Duration = &recording.DurationRange{
			Min: time.Duration(minSec * float64(time.Second)),
			Max: time.Duration(maxSec * float64(time.Second)),
		}
	}

	list, err := h.Recordings.Find(ctx, c)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (h *handlers) deleteRecordings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := req.RequireStringSlice("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := h.Recordings.DeleteMany(ctx, ids)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]int{"deleted": n})
}

func (h *handlers) getSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	audio, err := h.Settings.Audio(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	app, err := h.Settings.App(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"audio": audio, "app": app})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
