package adminapi

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/labstack/echo/v4"
)

// InspectorTable describes one store table for the console browser.
type InspectorTable struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// InspectorColumn describes one column of a store table.
type InspectorColumn struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	PrimaryKey   bool   `json:"primary_key"`
	DefaultValue string `json:"default_value,omitempty"`
}

// InspectorServerInfo carries engine facts for the console footer.
type InspectorServerInfo struct {
	DatabaseType    string `json:"database_type"`
	DatabaseVersion string `json:"database_version"`
	ServerTime      string `json:"server_time"`
	DatabaseName    string `json:"database_name"`
	DatabaseSize    string `json:"database_size"`
	TableCount      int    `json:"table_count"`
}

var columnNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// registerDbmsRoutes mounts the read-only table inspector. Only the store's
// own tables are reachable; writes go through the typed endpoints.
func registerDbmsRoutes() {
	webserver.ApiGET("/dbms/tables", dbmsListTables)
	webserver.ApiGET("/dbms/tables/:name", dbmsGetTableData)
	webserver.ApiGET("/dbms/tables/:name/schema", dbmsGetTableSchema)
	webserver.ApiGET("/dbms/serverinfo", dbmsGetServerInfo)
}

// inspectorTables derives the browsable table set from the registered
// domain models, so a new model is picked up without touching this file.
func inspectorTables() []string {
	type tabler interface{ TableName() string }
	names := make([]string, 0, len(domain.Tables))
	for _, model := range domain.Tables {
		if t, ok := model.(tabler); ok {
			names = append(names, t.TableName())
		}
	}
	sort.Strings(names)
	return names
}

func inspectorAllows(name string) bool {
	for _, known := range inspectorTables() {
		if known == name {
			return true
		}
	}
	return false
}

// quoteIdentifier double-quotes an identifier. Both supported engines
// (postgres, sqlite) accept the SQL standard form.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func dbmsListTables(c echo.Context) error {
	db := GetDB(c)

	tables := make([]InspectorTable, 0, len(domain.Tables))
	for _, name := range inspectorTables() {
		var count int64
		if err := db.Raw("SELECT COUNT(*) FROM " + quoteIdentifier(name)).Scan(&count).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to inspect "+name, err.Error())
		}
		tables = append(tables, InspectorTable{Name: name, RowCount: count})
	}
	return ok(c, tables)
}

func dbmsGetTableSchema(c echo.Context) error {
	db := GetDB(c)
	tableName := c.Param("name")
	if !inspectorAllows(tableName) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Unknown table", tableName)
	}

	var columns []InspectorColumn
	switch db.Dialector.Name() {
	case "postgres":
		primary := map[string]bool{}
		pkRows, err := db.Raw(`
			SELECT kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name
			WHERE tc.table_name = ? AND tc.constraint_type = 'PRIMARY KEY'
		`, tableName).Rows()
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to read schema", err.Error())
		}
		for pkRows.Next() {
			var col string
			if err := pkRows.Scan(&col); err == nil {
				primary[col] = true
			}
		}
		pkRows.Close()

		rows, err := db.Raw(`
			SELECT column_name, data_type, is_nullable, COALESCE(column_default, '')
			FROM information_schema.columns
			WHERE table_name = ?
			ORDER BY ordinal_position
		`, tableName).Rows()
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to read schema", err.Error())
		}
		defer rows.Close()
		for rows.Next() {
			var col InspectorColumn
			var nullable string
			if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.DefaultValue); err != nil {
				continue
			}
			col.Nullable = nullable == "YES"
			col.PrimaryKey = primary[col.Name]
			columns = append(columns, col)
		}

	case "sqlite":
		rows, err := db.Raw("PRAGMA table_info(" + quoteIdentifier(tableName) + ")").Rows()
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to read schema", err.Error())
		}
		defer rows.Close()
		for rows.Next() {
			var (
				cid           int
				name, colType string
				notNull, pk   int
				defaultValue  interface{}
			)
			if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
				continue
			}
			col := InspectorColumn{
				Name:       name,
				Type:       colType,
				Nullable:   notNull == 0,
				PrimaryKey: pk == 1,
			}
			if defaultValue != nil {
				col.DefaultValue = fmt.Sprintf("%v", defaultValue)
			}
			columns = append(columns, col)
		}
	}

	return ok(c, columns)
}

// dbmsGetTableData returns one page of raw rows. Columns are scanned
// generically; []byte values are surfaced as strings.
func dbmsGetTableData(c echo.Context) error {
	db := GetDB(c)
	tableName := c.Param("name")
	if !inspectorAllows(tableName) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Unknown table", tableName)
	}

	page, pageSize := parsePagination(c)
	offset := (page - 1) * pageSize

	sortField := c.QueryParam("_sort")
	if sortField == "" {
		sortField = "id"
	}
	if !columnNamePattern.MatchString(sortField) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid sort column", sortField)
	}
	sortOrder := strings.ToUpper(c.QueryParam("_order"))
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	var total int64
	db.Raw("SELECT COUNT(*) FROM " + quoteIdentifier(tableName)).Scan(&total)

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s %s LIMIT %d OFFSET %d",
		quoteIdentifier(tableName), quoteIdentifier(sortField), sortOrder, pageSize, offset)
	rows, err := db.Raw(query).Rows()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to read table", err.Error())
	}
	defer rows.Close()

	columns, _ := rows.Columns()
	results := make([]map[string]interface{}, 0, pageSize)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			continue
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, isBytes := values[i].([]byte); isBytes {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	// Content-Range is what the console's data grid paginates on.
	c.Response().Header().Set("Content-Range", fmt.Sprintf("%s %d-%d/%d", tableName, offset, offset+len(results), total))
	c.Response().Header().Set("Access-Control-Expose-Headers", "Content-Range")
	return ok(c, results)
}

func dbmsGetServerInfo(c echo.Context) error {
	db := GetDB(c)
	dialect := db.Dialector.Name()

	info := InspectorServerInfo{
		DatabaseType: dialect,
		ServerTime:   time.Now().Format("2006-01-02 15:04:05"),
		TableCount:   len(inspectorTables()),
	}

	switch dialect {
	case "postgres":
		db.Raw("SELECT version()").Scan(&info.DatabaseVersion)
		db.Raw("SELECT current_database()").Scan(&info.DatabaseName)
		db.Raw("SELECT pg_size_pretty(pg_database_size(current_database()))").Scan(&info.DatabaseSize)
	case "sqlite":
		var version string
		db.Raw("SELECT sqlite_version()").Scan(&version)
		info.DatabaseVersion = "SQLite " + version
		info.DatabaseName = "SQLite Database"

		var pageCount, pageSize int64
		db.Raw("PRAGMA page_count").Scan(&pageCount)
		db.Raw("PRAGMA page_size").Scan(&pageSize)
		info.DatabaseSize = prettySize(pageCount * pageSize)
	}

	return ok(c, info)
}

func prettySize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
}
