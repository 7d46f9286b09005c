package postgres

import (
	"context"
	"database/sql"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetByID(ctx context.Context, teamID, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, team_id, name, plate, status, mileage FROM vehicles WHERE id = $1 AND team_id = $2`
	logger.DatabaseCall("SELECT", "vehicles", "teamID", teamID, "vehicleID", id)
	err := r.db.QueryRowContext(ctx, query, id, teamID).Scan(&v.ID, &v.TeamID, &v.Name, &v.Plate, &v.Status, &v.Mileage)
	if err != nil {
		return nil, translate(err, "vehicle not found")
	}
	return v, nil
}

// setVehicleState flips availability inside a handover transaction. A
// check-out records the returned reading as the vehicle mileage; a check-in
// never rolls the odometer back.
func setVehicleState(ctx context.Context, tx *sql.Tx, teamID, vehicleID int32, status domain.VehicleStatus, mileage int32) error {
	query := `UPDATE vehicles SET status = $1, mileage = GREATEST(mileage, $2) WHERE id = $3 AND team_id = $4`
	if status == domain.VehicleStatusAvailable {
		query = `UPDATE vehicles SET status = $1, mileage = $2 WHERE id = $3 AND team_id = $4`
	}
	logger.DatabaseCall("UPDATE", "vehicles", "vehicleID", vehicleID, "status", status)
	res, err := tx.ExecContext(ctx, query, status, mileage, vehicleID, teamID)
	if err != nil {
		return err
	}
	return expectOne(res, "vehicle not updated")
}
