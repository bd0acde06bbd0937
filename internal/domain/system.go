package domain

import "time"

// SysConfig is one settings row. Type is the category a setting belongs to
// (payment, notify, backup, system); Sort keeps the console listing stable.
type SysConfig struct {
	ID        int64     `json:"id,string" form:"id"`
	Sort      int       `json:"sort" form:"sort"`
	Type      string    `gorm:"size:40;index" json:"type" form:"type"`
	Name      string    `gorm:"size:60;index" json:"name" form:"name"`
	Value     string    `json:"value" form:"value"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysConfig) TableName() string {
	return "sys_config"
}

// SysOpr is a console operator account. Passwords are stored as salted
// sha256 hashes; the seeded account is level "super".
type SysOpr struct {
	ID        int64     `json:"id,string" form:"id"`
	Realname  string    `gorm:"size:60" json:"realname" form:"realname"`
	Mobile    string    `gorm:"size:20" json:"mobile" form:"mobile"`
	Email     string    `gorm:"size:120" json:"email" form:"email"`
	Username  string    `gorm:"size:40;uniqueIndex" json:"username" form:"username"`
	Password  string    `gorm:"size:128" json:"password" form:"password"`
	Level     string    `gorm:"size:10" json:"level" form:"level"`
	Status    string    `gorm:"size:10" json:"status" form:"status"`
	Remark    string    `json:"remark" form:"remark"`
	LastLogin time.Time `json:"last_login" form:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysOpr) TableName() string {
	return "sys_opr"
}

// SysOprLog is the operator audit trail: one row per state-changing console
// action. Rows older than a year are purged by a daily job.
type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `gorm:"size:40;index" json:"opr_name"`
	OprIp     string    `gorm:"size:46" json:"opr_ip"`
	OptAction string    `gorm:"size:60;index" json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
