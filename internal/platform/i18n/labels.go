package i18n

var labels = map[Lang]map[string]string{
	Vietnamese: {
		"dashboard":        "Tổng quan",
		"employees":        "Nhân sự",
		"departments":      "Phòng ban",
		"settings":         "Cài đặt",
		"tasks":            "Công việc",
		"reports":          "Báo cáo kết quả",
		"status":           "Trạng thái",
		"task_todo":        "Cần làm",
		"task_progress":    "Đang thực hiện",
		"task_review":      "Chờ duyệt",
		"task_done":        "Hoàn thành",
		"assignTo":         "Người thực hiện",
		"dueDate":          "Hạn chót",
		"title":            "Công việc",
		"attachments":      "Tài liệu đính kèm",
		"payroll":          "Bảng lương & Chấm công",
		"baseSalary":       "Lương cơ bản",
		"allowances":       "Phụ cấp",
		"workDays":         "Ngày công",
		"dependents":       "Người phụ thuộc",
		"totalIncome":      "Tổng thu nhập",
		"reportTitle":      "BÁO CÁO KẾT QUẢ CÔNG VIỆC",
		"reportSubtitle":   "TBS GROUP MANAGEMENT SYSTEM",
		"reportPeriod":     "Kỳ báo cáo",
		"reportDate":       "Thời gian",
		"period_DAY":       "Theo Ngày",
		"period_WEEK":      "Theo Tuần",
		"period_MONTH":     "Theo Tháng",
		"period_ALL":       "Toàn bộ",
		"totalTasks":       "Tổng công việc",
		"completionRate":   "Tỷ lệ hoàn thành",
		"noData":           "Không có dữ liệu trong khoảng thời gian này.",
		"preparedBy":       "Người lập biểu",
		"approvedBy":       "Xác nhận của quản lý",
		"payslipTitle":     "PHIẾU LƯƠNG",
		"allow_phone":      "Điện thoại",
		"allow_housing":    "Nhà ở",
		"allow_social":     "Xã hội",
		"allow_dependents": "Người phụ thuộc",
		"allow_travel":     "Đi lại",
		"allow_bonus":      "Thưởng",
	},
	English: {
		"dashboard":        "Dashboard",
		"employees":        "Employees",
		"departments":      "Departments",
		"settings":         "Settings",
		"tasks":            "Tasks",
		"reports":          "Work Reports",
		"status":           "Status",
		"task_todo":        "To Do",
		"task_progress":    "In Progress",
		"task_review":      "In Review",
		"task_done":        "Done",
		"assignTo":         "Assignee",
		"dueDate":          "Due Date",
		"title":            "Task",
		"attachments":      "Attachments",
		"payroll":          "Payroll & Attendance",
		"baseSalary":       "Base Salary",
		"allowances":       "Allowances",
		"workDays":         "Work Days",
		"dependents":       "Dependents",
		"totalIncome":      "Total Income",
		"reportTitle":      "WORK RESULTS REPORT",
		"reportSubtitle":   "TBS GROUP MANAGEMENT SYSTEM",
		"reportPeriod":     "Report period",
		"reportDate":       "Date",
		"period_DAY":       "Daily",
		"period_WEEK":      "Weekly",
		"period_MONTH":     "Monthly",
		"period_ALL":       "All time",
		"totalTasks":       "Total Tasks",
		"completionRate":   "Completion Rate",
		"noData":           "No data for this period.",
		"preparedBy":       "Prepared by",
		"approvedBy":       "Manager approval",
		"payslipTitle":     "PAYSLIP",
		"allow_phone":      "Phone",
		"allow_housing":    "Housing",
		"allow_social":     "Social",
		"allow_dependents": "Dependents",
		"allow_travel":     "Travel",
		"allow_bonus":      "Bonus",
	},
}
