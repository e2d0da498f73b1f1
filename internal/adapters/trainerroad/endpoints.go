package trainerroad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"trcli/internal/core/record"
	perr "trcli/internal/platform/errors"
)

func unmarshalJSON(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// apiHeaders builds the header set shared by the /app/api endpoints.
// The json-format header asks for camelCase payloads; some endpoints
// additionally want a career referer or the upstream cache hint
func apiHeaders(baseURL, refererUsername string, useCache bool) http.Header {
	hdr := http.Header{}
	hdr.Set(jsonFormatHeader, "camel-case")
	if refererUsername != "" {
		hdr.Set("Referer", baseURL+"/app/career/"+refererUsername)
	}
	if useCache {
		hdr.Set(cacheHeader, "use-cache")
	}
	return hdr
}

// MemberInfo fetches the authenticated member document. Fails when the
// session is missing or expired
func (c *Client) MemberInfo(ctx context.Context) (record.Raw, error) {
	var out record.Raw
	err := c.requestJSON(ctx, http.MethodGet, "/app/api/member-info",
		apiHeaders(c.opts.BaseURL, "", false), nil, &out)
	return out, err
}

// PublicTSS fetches the public per-day aggregate payload for a username
func (c *Client) PublicTSS(ctx context.Context, username string) (record.Raw, error) {
	var out record.Raw
	err := c.requestJSON(ctx, http.MethodGet, "/app/api/tss/"+url.PathEscape(username),
		apiHeaders(c.opts.BaseURL, "", false), nil, &out)
	return out, err
}

// WeightHistory fetches every weight entry for a member
func (c *Client) WeightHistory(ctx context.Context, memberID int64, username string) ([]record.Raw, error) {
	var out []record.Raw
	path := fmt.Sprintf("/app/api/weight-history/%d/all", memberID)
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// AllUserPlans fetches the member's training plan list
func (c *Client) AllUserPlans(ctx context.Context, username string) ([]record.Raw, error) {
	var out []record.Raw
	path := "/app/api/plan-builder/" + url.PathEscape(username) + "/all-user-plans"
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// CurrentCustomPlan fetches the active custom plan, which may be null
func (c *Client) CurrentCustomPlan(ctx context.Context, username string) (record.Raw, error) {
	var out record.Raw
	path := "/app/api/plan-builder/current-custom-plan/" + url.PathEscape(username)
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// PlanPhases fetches the member's custom plan phases
func (c *Client) PlanPhases(ctx context.Context, username string) ([]record.Raw, error) {
	var out []record.Raw
	path := "/app/api/plan-builder/" + url.PathEscape(username) + "/plan-phases"
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// CareerSummary fetches the public career summary document
func (c *Client) CareerSummary(ctx context.Context, username string) (record.Raw, error) {
	var out record.Raw
	path := "/app/api/career/" + url.PathEscape(username) + "/new"
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, "", false), nil, &out)
	return out, err
}

// CareerLevels fetches the per-zone progression levels payload
func (c *Client) CareerLevels(ctx context.Context, memberID int64, username string) (record.Raw, error) {
	var out record.Raw
	path := fmt.Sprintf("/app/api/career/%d/levels", memberID)
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// AIFTPEligibility fetches the AI FTP detection eligibility payload
func (c *Client) AIFTPEligibility(ctx context.Context, memberID int64, username string) (record.Raw, error) {
	var out record.Raw
	path := fmt.Sprintf("/app/api/ai-ftp-detection/can-use-ai-ftp/%d", memberID)
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// AIFTPFailureStatus fetches the AI FTP failure status
func (c *Client) AIFTPFailureStatus(ctx context.Context, memberID int64, username string) (record.Raw, error) {
	var out record.Raw
	path := fmt.Sprintf("/app/api/calendar/aiftp/%d/ai-failure-status", memberID)
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, true), nil, &out)
	return out, err
}

// PowerRanking fetches the onboarding power-ranking rows, one per
// duration slot
func (c *Client) PowerRanking(ctx context.Context, memberID int64, username string) ([]record.Raw, error) {
	var out []record.Raw
	path := fmt.Sprintf("/app/api/onboarding/power-ranking?memberId=%d", memberID)
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// OnboardingPersonalRecords fetches all-time personal records, window
// bounds optional RFC3339 instants
func (c *Client) OnboardingPersonalRecords(ctx context.Context, username, startTime, endTime string) ([]record.Raw, error) {
	params := url.Values{}
	if startTime != "" {
		params.Set("startTime", startTime)
	}
	if endTime != "" {
		params.Set("endTime", endTime)
	}
	path := "/app/api/onboarding/personal-records"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out []record.Raw
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// Seasons fetches the member's seasons
func (c *Client) Seasons(ctx context.Context, memberID int64, username string) ([]record.Raw, error) {
	var out []record.Raw
	path := fmt.Sprintf("/app/api/seasons/%d", memberID)
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, false), nil, &out)
	return out, err
}

// DateRangeQuery bounds a personal-record date-range request
type DateRangeQuery struct {
	StartDate  string
	EndDate    string
	RowType    int
	IndoorOnly bool
	Slot       int
}

// PersonalRecordsForDateRange fetches personal records for a date
// window. This endpoint wants a POSTed slot array and serves PascalCase
// fields regardless of the json-format header. The response is an
// object whose results[0].personalRecords carries the record list
func (c *Client) PersonalRecordsForDateRange(ctx context.Context, memberID int64, username string, q DateRangeQuery) (record.Raw, error) {
	if q.StartDate == "" || q.EndDate == "" {
		return nil, perr.InvalidArgf("startDate and endDate are required (YYYY-MM-DD) for personal record queries")
	}
	if q.RowType == 0 {
		q.RowType = 101
	}
	if q.Slot == 0 {
		q.Slot = 1
	}

	params := url.Values{}
	params.Set("rowType", strconv.Itoa(q.RowType))
	params.Set("indoorOnly", strconv.FormatBool(q.IndoorOnly))
	path := fmt.Sprintf("/app/api/personal-records/for-date-range/%d?%s", memberID, params.Encode())

	payload, err := json.Marshal([]map[string]any{{
		"Slot":      q.Slot,
		"StartDate": q.StartDate,
		"EndDate":   q.EndDate,
	}})
	if err != nil {
		return nil, err
	}
	hdr := apiHeaders(c.opts.BaseURL, username, false)
	hdr.Set("Content-Type", "application/json")

	var out record.Raw
	err = c.requestJSON(ctx, http.MethodPost, path, hdr, bytes.NewReader(payload), &out)
	return out, err
}

// Timeline fetches the full calendar timeline document
func (c *Client) Timeline(ctx context.Context, memberID int64, username string) (record.Raw, error) {
	var out record.Raw
	path := fmt.Sprintf("/app/api/react-calendar/%d/timeline", memberID)
	err := c.requestJSON(ctx, http.MethodGet, path,
		apiHeaders(c.opts.BaseURL, username, true), nil, &out)
	return out, err
}

// ActivitiesByIDs fetches activity detail documents, batched at the
// endpoint's id limit, concatenated in request order
func (c *Client) ActivitiesByIDs(ctx context.Context, memberID int64, username string, ids []int64) ([]record.Raw, error) {
	path := fmt.Sprintf("/app/api/react-calendar/%d/activities", memberID)
	return c.batchedList(ctx, path, username, ids)
}

// PlannedActivitiesByIDs fetches planned-activity detail documents
func (c *Client) PlannedActivitiesByIDs(ctx context.Context, memberID int64, username string, ids []int64) ([]record.Raw, error) {
	path := fmt.Sprintf("/app/api/react-calendar/%d/planned-activities", memberID)
	return c.batchedList(ctx, path, username, ids)
}

// PersonalRecordsByActivityIDs fetches per-activity personal records,
// batched, merged into one map keyed by activity id
func (c *Client) PersonalRecordsByActivityIDs(ctx context.Context, memberID int64, username string, ids []int64) (map[string]any, error) {
	merged := map[string]any{}
	path := fmt.Sprintf("/app/api/react-calendar/%d/personal-records", memberID)
	for _, batch := range chunkIDs(ids, idBatchSize) {
		hdr := apiHeaders(c.opts.BaseURL, username, true)
		hdr.Set(idsHeader, joinIDs(batch))
		var page map[string]any
		if err := c.requestJSON(ctx, http.MethodGet, path, hdr, nil, &page); err != nil {
			return nil, err
		}
		for k, v := range page {
			merged[k] = v
		}
	}
	return merged, nil
}

func (c *Client) batchedList(ctx context.Context, path, username string, ids []int64) ([]record.Raw, error) {
	out := []record.Raw{}
	for _, batch := range chunkIDs(ids, idBatchSize) {
		hdr := apiHeaders(c.opts.BaseURL, username, true)
		hdr.Set(idsHeader, joinIDs(batch))
		var page []record.Raw
		if err := c.requestJSON(ctx, http.MethodGet, path, hdr, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page...)
	}
	return out, nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	var out [][]int64
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
