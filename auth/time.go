package auth

import "time"

// attemptsExpired reports whether the last failed login is older than
// CoolDownPeriod, in which case the attempt counter starts over
func attemptsExpired(now, lastAttempt time.Time) (bool, error) {
	coolDown, err := time.ParseDuration(CoolDownPeriod)
	if err != nil {
		return false, err
	}
	return !lastAttempt.After(now.Add(-coolDown)), nil
}
