package heuristic

import (
	"fmt"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/utils"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/tld"
)

// TLDCheck rejects hosts whose rightmost label is not a delegated TLD.
type TLDCheck struct {
	Table tld.Table
}

func (TLDCheck) Name() string { return "tld" }

func (c TLDCheck) Check(host string) *domain.Violation {
	label := utils.LastLabel(host)
	if c.Table.Contains(label) {
		return nil
	}
	return domain.NewViolation(domain.CodeIllegalTLD,
		fmt.Sprintf("Domain TLD not legal: %s", host),
		map[string]string{"domain": host, "tld": label})
}
