package lcu

// Privileges answers whether the process can read other processes'
// command lines. On Windows the client runs elevated, so discovery
// usually needs elevation too.
type Privileges struct {
	IsAdmin bool   `json:"is_admin"`
	Message string `json:"message"`
}

func CheckPrivileges() Privileges {
	if isElevated() {
		return Privileges{IsAdmin: true, Message: "running with administrator privileges"}
	}
	return Privileges{
		IsAdmin: false,
		Message: "not running with administrator privileges; the client process may not be detected",
	}
}
