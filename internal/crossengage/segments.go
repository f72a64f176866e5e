package crossengage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/that-one-tom/crossengage-ops/internal/pkg/logger"
)

// The filter/segment create endpoint belongs to the UI API and validates the
// exact payload shape the web app sends, Angular artifacts included. Field
// names and placeholder values below are deliberately verbatim.

type segmentPayload struct {
	Label       string          `json:"label"`
	Type        string          `json:"type"`
	Operator    string          `json:"operator"`
	SubFilters  []segmentFilter `json:"subFilters"`
	JustCreated bool            `json:"justCreated"`
	HashKey     string          `json:"$$hashKey"`
}

type segmentFilter struct {
	Type        string             `json:"type"`
	Label       string             `json:"label"`
	Operator    *string            `json:"operator"`
	JustCreated bool               `json:"justCreated"`
	SubFilters  []segmentFilter    `json:"subFilters"`
	Conditions  []segmentCondition `json:"conditions"`
	ID          *int64             `json:"id"`
}

type segmentCondition struct {
	Values      []string           `json:"values"`
	Conditions  []placeholderValue `json:"conditions"`
	ValueIDList []int              `json:"valueIdList"`
	AttributeID json.Number        `json:"attributeId"`
	Operator    string             `json:"operator"`
}

type placeholderValue struct {
	Values  []string `json:"values"`
	HashKey string   `json:"$$hashKey"`
}

// ResolveEmailAttributeID looks up the attribute id of the traits.email
// property from the attribute schema. Resolved once per run; segment
// conditions reference the attribute by this id.
func (c *Client) ResolveEmailAttributeID(ctx context.Context) (json.Number, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.uiBaseURL+"/campaigns/event-classes", nil, c.uiHeaders())
	if err != nil {
		return "", fmt.Errorf("fetching attribute schema: %w", err)
	}
	if status != http.StatusOK {
		return "", newStatusError(ErrAttributeNotFound, "fetching attribute schema", status, body)
	}

	var schema struct {
		Properties []struct {
			ID    json.Number `json:"id"`
			Label string      `json:"label"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &schema); err != nil {
		return "", fmt.Errorf("parsing attribute schema: %w", err)
	}

	for _, prop := range schema.Properties {
		if prop.Label == "traits.email" {
			return prop.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no attribute labeled traits.email", ErrAttributeNotFound)
}

// CreateSegment creates a disposable filter segment matching any of the
// given emails: a CONTAINER filter OR-combining one equality condition per
// email against the resolved email attribute. Returns the new segment id.
func (c *Client) CreateSegment(ctx context.Context, emailAttributeID json.Number, emails []string) (string, error) {
	payload := segmentPayload{
		Label:      "[Sendgrid Opt-Out Sync] " + uuid.NewString()[:8],
		Type:       "CONTAINER",
		Operator:   "OR",
		SubFilters: make([]segmentFilter, 0, len(emails)),
		HashKey:    "object:1340",
	}
	for _, email := range emails {
		payload.SubFilters = append(payload.SubFilters, segmentFilter{
			Type:       "ATTRIBUTE",
			Label:      "_gen:_" + strconv.FormatInt(time.Now().UnixNano(), 10),
			SubFilters: []segmentFilter{},
			Conditions: []segmentCondition{{
				Values:      []string{email},
				Conditions:  []placeholderValue{{Values: []string{""}, HashKey: "object:1874"}},
				ValueIDList: []int{0},
				AttributeID: emailAttributeID,
				Operator:    "==",
			}},
		})
	}

	status, body, err := c.do(ctx, http.MethodPost, c.uiBaseURL+"/campaigns/filters", payload, c.uiHeaders())
	if err != nil {
		return "", fmt.Errorf("creating segment: %w", err)
	}
	if status != http.StatusOK {
		return "", newStatusError(ErrSegmentCreate, "creating segment", status, body)
	}

	var segment struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(body, &segment); err != nil {
		return "", fmt.Errorf("parsing segment create response: %w", err)
	}
	if segment.ID.String() == "" {
		return "", fmt.Errorf("%w: create response carried no id", ErrSegmentCreate)
	}
	return segment.ID.String(), nil
}

// TriggerSegmentCount forces the server to materialize the segment's user
// count. The member listing returns populated results only after this call.
func (c *Client) TriggerSegmentCount(ctx context.Context, segmentID string) (int64, error) {
	url := fmt.Sprintf("%s/filters/%s/count", c.uiBaseURL, segmentID)
	status, body, err := c.do(ctx, http.MethodGet, url, nil, c.uiHeaders())
	if err != nil {
		return 0, fmt.Errorf("triggering count for segment %s: %w", segmentID, err)
	}
	if status != http.StatusOK {
		return 0, newStatusError(ErrSegmentCount, "triggering segment count", status, body)
	}

	var result struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("parsing segment count response: %w", err)
	}
	return result.Total, nil
}

// ListSegmentMembers retrieves one page of the segment's user records.
// A single page suffices for segments built from batches no larger than
// the page size.
func (c *Client) ListSegmentMembers(ctx context.Context, segmentID string, offset, limit int) ([]User, error) {
	url := fmt.Sprintf("%s/userexplorer/%s?offset=%d&limit=%d", c.uiBaseURL, segmentID, offset, limit)
	status, body, err := c.do(ctx, http.MethodGet, url, nil, c.uiHeaders())
	if err != nil {
		return nil, fmt.Errorf("listing members of segment %s: %w", segmentID, err)
	}
	if status != http.StatusOK {
		return nil, newStatusError(ErrSegmentList, "listing segment members", status, body)
	}

	var result struct {
		Part []User `json:"part"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing segment member response: %w", err)
	}
	return result.Part, nil
}

// DeleteSegment removes a segment. The platform answers 204 on success.
func (c *Client) DeleteSegment(ctx context.Context, segmentID string) error {
	url := fmt.Sprintf("%s/filters/%s", c.uiBaseURL, segmentID)
	status, body, err := c.do(ctx, http.MethodDelete, url, nil, c.uiHeaders())
	if err != nil {
		return fmt.Errorf("deleting segment %s: %w", segmentID, err)
	}
	if status != http.StatusNoContent {
		return newStatusError(ErrSegmentDelete, "deleting segment", status, body)
	}
	return nil
}

// WithSegment runs fn against the members of a disposable segment built from
// the given emails, then deletes the segment on every exit path. The segment
// lifecycle is create → count → list → fn → delete; the count step is required
// for the listing to return populated results. If fn (or an earlier step after
// creation) fails, the delete is still attempted and its outcome logged, but
// the original error is returned.
func (c *Client) WithSegment(ctx context.Context, emailAttributeID json.Number, emails []string, fn func(ctx context.Context, users []User) error) (err error) {
	segmentID, err := c.CreateSegment(ctx, emailAttributeID, emails)
	if err != nil {
		return err
	}

	defer func() {
		if delErr := c.DeleteSegment(ctx, segmentID); delErr != nil {
			if err == nil {
				err = delErr
				return
			}
			// Keep the original failure; the leaked segment is logged so it
			// can be cleaned up by hand.
			logger.Warn("segment left undeleted after failure", "segment_id", segmentID, "delete_error", delErr)
		}
	}()

	total, err := c.TriggerSegmentCount(ctx, segmentID)
	if err != nil {
		return err
	}
	logger.Info("segment materialized", "segment_id", segmentID, "user_count", total)

	users, err := c.ListSegmentMembers(ctx, segmentID, 0, len(emails))
	if err != nil {
		return err
	}

	return fn(ctx, users)
}
