package core

const (
	StatusWorking   = "Đang làm việc"
	StatusProbation = "Thử việc"
	StatusResigned  = "Đã nghỉ việc"
	StatusOnLeave   = "Nghỉ phép"
)

var EmployeeStatuses = []string{StatusWorking, StatusProbation, StatusResigned, StatusOnLeave}

const (
	GenderMale   = "Nam"
	GenderFemale = "Nữ"
	GenderOther  = "Khác"
)

var Genders = []string{GenderMale, GenderFemale, GenderOther}

const DefaultContractType = "Toàn thời gian"

// DefaultDepartments is the catalogue seeded into an empty database.
var DefaultDepartments = []Department{
	{ID: "RD", Name: "Nghiên cứu & Phát triển (R&D)", Description: "Phòng sáng tạo và phát triển mẫu"},
	{ID: "TMH", Name: "Thương mại hóa (TMH)", Description: "Phòng kinh doanh và sản phẩm"},
	{ID: "QLCL", Name: "Quản lý chất lượng (QC)", Description: "Kiểm soát chất lượng đầu ra"},
	{ID: "KH", Name: "Kế hoạch tổng hợp", Description: "Điều phối sản xuất"},
}

const avatarServiceURL = "https://ui-avatars.com/api/"
