package models

// Column describes one text column of the trips table. Name is the exact
// header used by the source file and the DDL; Width is the VARCHAR size.
type Column struct {
	Name  string
	Width int
}

// TripColumns is the fixed column order shared by the source file header,
// the table schema and the insert statement.
var TripColumns = []Column{
	{"Date", 255},
	{"Time", 255},
	{"Booking ID", 100},
	{"Booking Status", 100},
	{"Customer ID", 100},
	{"Vehicle Type", 50},
	{"Pickup Location", 100},
	{"Drop Location", 100},
	{"Avg VTAT", 50},
	{"Avg CTAT", 50},
	{"Cancelled Rides by Customer", 50},
	{"Reason for cancelling by Customer", 200},
	{"Cancelled Rides by Driver", 50},
	{"Driver Cancellation Reason", 200},
	{"Incomplete Rides", 50},
	{"Incomplete Rides Reason", 200},
	{"Booking Value", 50},
	{"Ride Distance", 50},
	{"Driver Ratings", 50},
	{"Customer Rating", 50},
	{"Payment Method", 50},
}

// TripColumnNames returns the names of TripColumns in order.
func TripColumnNames() []string {
	names := make([]string, len(TripColumns))
	for i, c := range TripColumns {
		names[i] = c.Name
	}
	return names
}

// Cleaned column names, after normalization.
const (
	DateColumn          = "date"
	TimeColumn          = "time"
	BookingStatusColumn = "booking_status"
	VehicleTypeColumn   = "vehicle_type"
)

// NumericColumns are coerced to numbers and mean-imputed during cleaning.
var NumericColumns = []string{
	"avg_vtat",
	"avg_ctat",
	"cancelled_rides_by_customer",
	"cancelled_rides_by_driver",
	"incomplete_rides",
	"booking_value",
	"ride_distance",
	"driver_ratings",
	"customer_rating",
}

// Sentinels used in the textual media.
const (
	NullToken    = "null"
	UnknownValue = "Unknown"
)
