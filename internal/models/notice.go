package models

import "time"

// TrialNotice данные для письма об окончании пробного периода.
type TrialNotice struct {
	BusinessUID  string
	BusinessName string
	TrialEndDate time.Time
	Email        string
	FirstName    string
}
