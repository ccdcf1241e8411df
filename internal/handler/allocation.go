package handler

import (
	"errors"   // for errors.Is comparisons against service sentinels
	"net/http" // HTTP status codes
	"strings"  // splitting callback payloads

	"github.com/iliyamo/account-allocator/internal/model"   // outcome parsing
	"github.com/iliyamo/account-allocator/internal/service" // allocation orchestration
	"github.com/iliyamo/account-allocator/internal/store"   // store fault sentinels
	"github.com/labstack/echo/v4"                           // Echo web framework
)

// AllocationHandler exposes the allocator over HTTP. All methods assume the
// RequesterAuth middleware already ran; they return 401 when the requester
// identity cannot be extracted from the context. Every failure path
// produces a JSON body with a human-readable message so no caller is ever
// left without a response.
type AllocationHandler struct {
	Service *service.AllocationService
}

// NewAllocationHandler constructs an AllocationHandler and panics when the
// service is nil.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	if svc == nil {
		panic("nil service passed to NewAllocationHandler")
	}
	return &AllocationHandler{Service: svc}
}

// reportOption is one of the outcome affordances attached to a claim
// response. CallbackData round-trips through a chat front-end as
// "<OUTCOME>|<username>", the format the report endpoint accepts back.
type reportOption struct {
	Label        string `json:"label"`
	CallbackData string `json:"callback_data"`
}

// Claim handles POST /v1/accounts/claim. It allocates the first free
// non-LATAM account to the calling requester and returns the full
// credential payload together with the outcome-report affordances. When
// every row is taken or LATAM it returns 404 — an empty pool is a
// legitimate result, phrased for the end user. Store faults map to 503 so
// the caller knows to retry.
func (h *AllocationHandler) Claim(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	asg, err := h.Service.RequestAccount(c.Request().Context(), requesterID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoneAvailable):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no free accounts available"})
		case errors.Is(err, service.ErrPendingLimit):
			return c.JSON(http.StatusConflict, echo.Map{"error": "you already hold the maximum number of unreported accounts"})
		case errors.Is(err, store.ErrTimeout), errors.Is(err, store.ErrUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "account table unreachable, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to claim account"})
	}

	region := strings.TrimSpace(asg.Account.Region)
	if region == "" {
		region = "unknown"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"row": asg.Row,
		"account": echo.Map{
			"username":      asg.Account.Username,
			"password":      asg.Account.Password,
			"mail_address":  asg.Account.MailAddress,
			"mail_password": asg.Account.MailPassword,
			"region":        region,
		},
		"report_options": []reportOption{
			{Label: "broken", CallbackData: string(model.OutcomeBroken) + "|" + asg.Account.Username},
			{Label: "region mismatch", CallbackData: string(model.OutcomeRegionMismatch) + "|" + asg.Account.Username},
		},
	})
}

// Report handles POST /v1/accounts/report. The body either names the
// account and outcome separately:
//
//	{"account": "user42", "outcome": "BROKEN"}
//
// or carries a chat button's callback payload verbatim:
//
//	{"callback_data": "BROKEN|user42"}
//
// A requester can only report accounts from their own pending list; an
// unknown account yields 404 without touching the table (another
// requester's claim under the same username is invisible here). A row that
// already left ASSIGNED yields 409.
func (h *AllocationHandler) Report(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Account      string `json:"account"`
		Outcome      string `json:"outcome"`
		CallbackData string `json:"callback_data"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	account, rawOutcome := body.Account, body.Outcome
	if body.CallbackData != "" {
		action, ref, ok := strings.Cut(body.CallbackData, "|")
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed callback_data"})
		}
		account, rawOutcome = ref, action
	}
	if account == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account is required"})
	}
	outcome, ok := model.ParseOutcome(rawOutcome)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "outcome must be WORKS, BROKEN or REGION_MISMATCH"})
	}

	if err := h.Service.ReportOutcome(c.Request().Context(), requesterID, account, outcome); err != nil {
		switch {
		case errors.Is(err, service.ErrNoPending):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "you have no pending account with that name"})
		case errors.Is(err, service.ErrRowNotAssigned):
			return c.JSON(http.StatusConflict, echo.Map{"error": "that account is no longer assigned"})
		case errors.Is(err, store.ErrTimeout), errors.Is(err, store.ErrUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "account table unreachable, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to report outcome"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"account": account,
		"outcome": outcome,
	})
}

// Pending handles GET /v1/accounts/pending. It lists the requester's
// outstanding claims so a chat front-end can re-render report buttons after
// losing its own state. Returns an empty array rather than null when
// nothing is pending.
func (h *AllocationHandler) Pending(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	pending := h.Service.PendingClaims(requesterID)
	items := make([]echo.Map, 0, len(pending))
	for _, pc := range pending {
		items = append(items, echo.Map{
			"account": pc.AccountRef,
			"row":     pc.Row,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
