package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	since, err := parseTimeQuery(c, "since")
	if err != nil {
		response.Error(c, err)
		return
	}
	until, err := parseTimeQuery(c, "until")
	if err != nil {
		response.Error(c, err)
		return
	}

	opts := listOptions(c)
	logs, total, err := h.svc.List(requestContext(c), tenant, services.AuditListOptions{
		ListOptions: opts,
		Filters: services.AuditFilters{
			UserID:   c.Query("user_id"),
			Action:   c.Query("action"),
			Result:   c.Query("result"),
			Resource: c.Query("resource"),
			Since:    since,
			Until:    until,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(opts.Page, opts.PerPage, total))
}
