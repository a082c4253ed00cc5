package config

import (
	"github.com/sirupsen/logrus"

	"github.com/sinclairtarget/idman/internal/logging"
)

var pkgLogger *logrus.Entry

func logger() *logrus.Entry {
	if pkgLogger == nil {
		pkgLogger = logging.ForPackage("config")
	}

	return pkgLogger
}
