package services

import (
	"errors"

	"github.com/dmitrijs2005/textli/internal/common"
)

// hideNotFound turns a repository miss into ErrorUnauthorized so callers
// cannot tell a missing resource from someone else's.
func hideNotFound(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorUnauthorized
	}
	return err
}
