// Package net holds HTTP helpers shared by the daemon's handlers.
package net

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Errorf replies to an HTTP request with the specified error, also logging it.
func Errorf(w http.ResponseWriter, code int, msgfmt string, args ...interface{}) {
	msg := fmt.Sprintf(msgfmt, args...)
	http.Error(w, msg, code)
	logrus.WithField("status", code).Warn(msg)
}
