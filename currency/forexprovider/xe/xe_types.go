package xe

import (
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/request"
)

// These consts contain endpoint information
const (
	APIURL                 = "https://xecdapi.xe.com/"
	APIEndpointConvertFrom = "v1/convert_from.json/"
	APIEndpointHistoric    = "v1/historic_rate.json/"
	APIEndpointAccountInfo = "v1/account_info.json/"

	// codeMonthlyLimit is returned in the body once the package allowance
	// is used up
	codeMonthlyLimit = 3
	// codeBadCredentials is returned in the body when the account id or key
	// is refused
	codeBadCredentials = 1
)

// XE is a foreign exchange rate provider at https://www.xe.com/xecurrencydata/
// authenticated with HTTP basic auth using the account id and key
type XE struct {
	base.Base
	Requester *request.Requester
	apiURL    string
}

// AccountInfo holds the package allowance for the configured account
type AccountInfo struct {
	ID                    string `json:"id"`
	Organization          string `json:"organization"`
	Package               string `json:"package"`
	ServiceStartTimestamp string `json:"service_start_timestamp"`
	PackageLimitDuration  string `json:"package_limit_duration"`
	PackageLimit          int64  `json:"package_limit"`
	PackageLimitRemaining int64  `json:"package_limit_remaining"`
	PackageLimitReset     string `json:"package_limit_reset"`
}
