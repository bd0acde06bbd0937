package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOpr{},
	&SysOprLog{},
	&StoreScheduler{},
	// Commerce
	&Product{},
	&Customer{},
	&Order{},
	&OrderItem{},
	&Payment{},
}
