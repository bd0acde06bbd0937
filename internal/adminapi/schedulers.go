package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/labstack/echo/v4"
)

// schedulerPayload accepts a new scheduled task. TaskType must name one of
// the runners the dispatcher knows.
type schedulerPayload struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	TaskType string `json:"task_type" validate:"required,oneof=daily_sales_report database_backup metrics_snapshot"`
	Interval int    `json:"interval" validate:"required,min=10"`
	Status   string `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Config   string `json:"config" validate:"omitempty,max=2000"`
	Remark   string `json:"remark" validate:"omitempty,max=500"`
}

// schedulerUpdatePayload relaxes the rules for partial updates.
type schedulerUpdatePayload struct {
	Name     string `json:"name" validate:"omitempty,min=1,max=100"`
	TaskType string `json:"task_type" validate:"omitempty,oneof=daily_sales_report database_backup metrics_snapshot"`
	Interval int    `json:"interval" validate:"omitempty,min=10"`
	Status   string `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Config   string `json:"config" validate:"omitempty,max=2000"`
	Remark   string `json:"remark" validate:"omitempty,max=500"`
}

func registerSchedulerRoutes() {
	webserver.ApiGET("/store/schedulers", listSchedulers)
	webserver.ApiGET("/store/schedulers/:id", getScheduler)
	webserver.ApiPOST("/store/schedulers", createScheduler)
	webserver.ApiPUT("/store/schedulers/:id", updateScheduler)
	webserver.ApiDELETE("/store/schedulers/:id", deleteScheduler)
	webserver.ApiPOST("/store/schedulers/:id/run", runScheduler)
}

// listSchedulers retrieves the scheduled task list
// @Summary get the scheduler list
// @Tags Schedulers
// @Param page query int false "Page number"
// @Param pageSize query int false "Items per page"
// @Param name query string false "Scheduler name"
// @Param status query string false "enabled or disabled"
// @Param task_type query string false "Task type"
// @Success 200 {object} ListResponse
// @Router /api/v1/store/schedulers [get]
func listSchedulers(c echo.Context) error {
	page, pageSize := parsePagination(c)

	sortField := strings.TrimSpace(c.QueryParam("sort"))
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	allowed := map[string]string{
		"id":          "id",
		"name":        "name",
		"task_type":   "task_type",
		"status":      "status",
		"last_run_at": "last_run_at",
		"next_run_at": "next_run_at",
	}
	sortCol, found := allowed[sortField]
	if !found || sortCol == "" {
		sortCol = "id"
	}

	db := GetDB(c).Model(&domain.StoreScheduler{})
	if name := strings.TrimSpace(c.QueryParam("name")); name != "" {
		if strings.EqualFold(db.Name(), "postgres") {
			db = db.Where("name ILIKE ?", "%"+name+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
		}
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if taskType := strings.TrimSpace(c.QueryParam("task_type")); taskType != "" {
		db = db.Where("task_type = ?", taskType)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query schedulers", err.Error())
	}

	var rows []domain.StoreScheduler
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query schedulers", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getScheduler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}

	var scheduler domain.StoreScheduler
	if err := GetDB(c).First(&scheduler, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Scheduler not found", nil)
	}
	return ok(c, scheduler)
}

func createScheduler(c echo.Context) error {
	var payload schedulerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scheduler", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var count int64
	GetDB(c).Model(&domain.StoreScheduler{}).Where("name = ?", payload.Name).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "NAME_EXISTS", "Scheduler name already exists", nil)
	}

	status := payload.Status
	if status == "" {
		status = "enabled"
	}
	scheduler := domain.StoreScheduler{
		Name:      payload.Name,
		TaskType:  payload.TaskType,
		Interval:  payload.Interval,
		Status:    status,
		Config:    payload.Config,
		Remark:    payload.Remark,
		NextRunAt: time.Now().Add(time.Duration(payload.Interval) * time.Second),
	}
	if err := GetDB(c).Create(&scheduler).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create scheduler", err.Error())
	}

	writeOprLog(c, GetCurrentUsername(c), "create_scheduler", scheduler.Name)
	return ok(c, scheduler)
}

func updateScheduler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}

	var scheduler domain.StoreScheduler
	if err := GetDB(c).First(&scheduler, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Scheduler not found", nil)
	}

	var payload schedulerUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scheduler", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	if payload.Name != "" && payload.Name != scheduler.Name {
		var count int64
		GetDB(c).Model(&domain.StoreScheduler{}).Where("name = ? AND id != ?", payload.Name, id).Count(&count)
		if count > 0 {
			return fail(c, http.StatusConflict, "NAME_EXISTS", "Scheduler name already exists", nil)
		}
		scheduler.Name = payload.Name
	}
	if payload.TaskType != "" {
		scheduler.TaskType = payload.TaskType
	}
	if payload.Interval > 0 {
		scheduler.Interval = payload.Interval
		// a changed cadence reschedules from now
		scheduler.NextRunAt = time.Now().Add(time.Duration(payload.Interval) * time.Second)
	}
	if payload.Status != "" {
		scheduler.Status = payload.Status
	}
	if payload.Config != "" {
		scheduler.Config = payload.Config
	}
	if payload.Remark != "" {
		scheduler.Remark = payload.Remark
	}
	if err := GetDB(c).Save(&scheduler).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update scheduler", err.Error())
	}

	writeOprLog(c, GetCurrentUsername(c), "update_scheduler", scheduler.Name)
	return ok(c, scheduler)
}

func deleteScheduler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}

	var scheduler domain.StoreScheduler
	if err := GetDB(c).First(&scheduler, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Scheduler not found", nil)
	}
	if err := GetDB(c).Delete(&scheduler).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete scheduler", err.Error())
	}

	writeOprLog(c, GetCurrentUsername(c), "delete_scheduler", scheduler.Name)
	return c.NoContent(http.StatusNoContent)
}

// runScheduler executes the task immediately, outside its normal cadence.
func runScheduler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}

	if err := GetAppContext(c).RunSchedulerNow(id); err != nil {
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run scheduler", err.Error())
	}

	writeOprLog(c, GetCurrentUsername(c), "run_scheduler", c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}
