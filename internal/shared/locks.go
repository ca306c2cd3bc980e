package shared

import "fmt"

// ShipmentLockKey builds the redis key guarding cost distribution of a shipment.
func ShipmentLockKey(shipmentID string) string {
	return fmt.Sprintf("costing:shipment:%s:lock", shipmentID)
}
