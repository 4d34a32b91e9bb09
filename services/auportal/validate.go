package auportal

import "time"

const dobLayout = "02-01-2006"

// ValidRegisterNo reports whether the register number is a digit string
// longer than 8 characters, the format the portal issues.
func ValidRegisterNo(registerNo string) bool {
	if len(registerNo) <= 8 {
		return false
	}
	for _, c := range registerNo {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidDob reports whether dob is a real calendar date in DD-MM-YYYY
// form. time.Parse rejects impossible dates like 31-02-2020.
func ValidDob(dob string) bool {
	_, err := time.Parse(dobLayout, dob)
	return err == nil
}
