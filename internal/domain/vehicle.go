package domain

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusRented      VehicleStatus = "rented"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

type Vehicle struct {
	ID      int32         `json:"id"`
	TeamID  int32         `json:"team_id"`
	Name    string        `json:"name"`
	Plate   string        `json:"plate"`
	Status  VehicleStatus `json:"status"`
	Mileage int32         `json:"mileage"`
}
