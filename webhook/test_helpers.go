package webhook

import "github.com/stretchr/testify/mock"

// MatchDeliveryLog creates a custom matcher for delivery log arguments in mocks
func MatchDeliveryLog(matcher func(DeliveryLog) bool) interface{} {
	return mock.MatchedBy(matcher)
}
