package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"baltictransit.dev/schedule/model"
)

const (
	PSQLStopTimeBatchSize = 5000
	PSQLShapeBatchSize    = 5000
)

// PSQLStorage keeps all feeds in a single database, with every row
// keyed by feed hash. Unlike the sqlite backend there is no
// per-feed file to throw away, so GetWriter clears old rows instead.
type PSQLStorage struct {
	db *sql.DB
}

type PSQLFeedWriter struct {
	id          string
	db          *sql.DB
	stopTimeBuf []*model.StopTime
	shapeBuf    []*model.ShapePoint
}

type PSQLFeedReader struct {
	id string
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if db.Ping() != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`
DROP TABLE IF EXISTS feed;
DROP TABLE IF EXISTS calendar;
DROP TABLE IF EXISTS calendar_dates;
DROP TABLE IF EXISTS stops;
DROP TABLE IF EXISTS stop_times;
DROP TABLE IF EXISTS routes;
DROP TABLE IF EXISTS trips;
DROP TABLE IF EXISTS shapes;
`)
		if err != nil {
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS feed (
    hash TEXT,
    url TEXT NOT NULL,
    retrieved_at TIMESTAMPTZ NOT NULL,
    calendar_start TEXT NOT NULL,
    calendar_end TEXT NOT NULL,
    PRIMARY KEY (hash, url)
);`)
	if err != nil {
		return nil, fmt.Errorf("creating feed table: %w", err)
	}

	return &PSQLStorage{
		db: db,
	}, nil
}

func (s *PSQLStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}

func (s *PSQLStorage) ListFeeds(filter ListFeedsFilter) ([]*FeedMetadata, error) {
	query := `
SELECT hash, url, retrieved_at, calendar_start, calendar_end
FROM feed`

	conditions := []string{}
	params := []interface{}{}
	paramCount := 1

	if filter.URL != "" {
		conditions = append(conditions, fmt.Sprintf("url = $%d", paramCount))
		params = append(params, filter.URL)
		paramCount++
	}
	if filter.Hash != "" {
		conditions = append(conditions, fmt.Sprintf("hash = $%d", paramCount))
		params = append(params, filter.Hash)
		paramCount++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY retrieved_at DESC"

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*FeedMetadata
	for rows.Next() {
		var feed FeedMetadata
		err := rows.Scan(
			&feed.Hash,
			&feed.URL,
			&feed.RetrievedAt,
			&feed.CalendarStartDate,
			&feed.CalendarEndDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning feed: %w", err)
		}
		feed.RetrievedAt = feed.RetrievedAt.UTC()
		feeds = append(feeds, &feed)
	}

	return feeds, nil
}

func (s *PSQLStorage) WriteFeedMetadata(feed *FeedMetadata) error {
	_, err := s.db.Exec(`
INSERT INTO feed (hash, url, retrieved_at, calendar_start, calendar_end)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (hash, url) DO UPDATE SET
    retrieved_at = excluded.retrieved_at,
    calendar_start = excluded.calendar_start,
    calendar_end = excluded.calendar_end
`,
		feed.Hash,
		feed.URL,
		feed.RetrievedAt.UTC(),
		feed.CalendarStartDate,
		feed.CalendarEndDate,
	)
	if err != nil {
		return fmt.Errorf("writing feed metadata: %w", err)
	}
	return nil
}

func (s *PSQLStorage) DeleteFeedMetadata(url string, hash string) error {
	_, err := s.db.Exec(`
DELETE FROM feed
WHERE url = $1 AND hash = $2
`, url, hash)
	return err
}

func (s *PSQLStorage) GetReader(hash string) (FeedReader, error) {
	return &PSQLFeedReader{
		id: hash,
		db: s.db,
	}, nil
}

func (s *PSQLStorage) GetWriter(hash string) (FeedWriter, error) {
	tables := map[string]string{
		"stops": `
CREATE TABLE IF NOT EXISTS stops (
    hash TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_name TEXT NOT NULL,
    stop_lat DOUBLE PRECISION NOT NULL,
    stop_lon DOUBLE PRECISION NOT NULL,
    PRIMARY KEY(hash, stop_id)
);`,
		"routes": `
CREATE TABLE IF NOT EXISTS routes (
    hash TEXT NOT NULL,
    route_id TEXT NOT NULL,
    route_short_name TEXT,
    route_long_name TEXT NOT NULL,
    route_color TEXT,
    route_mode INTEGER NOT NULL,
    PRIMARY KEY(hash, route_id)
);
CREATE INDEX IF NOT EXISTS routes_mode ON routes (route_mode);
`,
		"trips": `
CREATE TABLE IF NOT EXISTS trips (
    hash TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    route_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    shape_id TEXT,
    trip_headsign TEXT,
    PRIMARY KEY(hash, trip_id)
);
CREATE INDEX IF NOT EXISTS trips_route_id ON trips (route_id);
CREATE INDEX IF NOT EXISTS trips_service_id ON trips (service_id);
`,
		"stop_times": `
CREATE TABLE IF NOT EXISTS stop_times (
    hash TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    arrival_time TEXT NOT NULL,
    departure_time TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    PRIMARY KEY(hash, trip_id, stop_id, stop_sequence)
);
CREATE INDEX IF NOT EXISTS stop_times_trip_id ON stop_times (trip_id);
CREATE INDEX IF NOT EXISTS stop_times_stop_id ON stop_times (stop_id);
`,
		"calendar": `
CREATE TABLE IF NOT EXISTS calendar (
    hash TEXT NOT NULL,
    service_id TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    monday INTEGER NOT NULL,
    tuesday INTEGER NOT NULL,
    wednesday INTEGER NOT NULL,
    thursday INTEGER NOT NULL,
    friday INTEGER NOT NULL,
    saturday INTEGER NOT NULL,
    sunday INTEGER NOT NULL,
    PRIMARY KEY(hash, service_id)
);`,
		"calendar_dates": `
CREATE TABLE IF NOT EXISTS calendar_dates (
    hash TEXT NOT NULL,
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    exception_type INTEGER NOT NULL,
    PRIMARY KEY(hash, service_id, date)
);`,
		"shapes": `
CREATE TABLE IF NOT EXISTS shapes (
    hash TEXT NOT NULL,
    shape_id TEXT NOT NULL,
    shape_pt_lat DOUBLE PRECISION NOT NULL,
    shape_pt_lon DOUBLE PRECISION NOT NULL,
    shape_pt_sequence INTEGER NOT NULL,
    PRIMARY KEY(hash, shape_id, shape_pt_sequence)
);`,
	}

	// Create tables if they don't exist
	for name, query := range tables {
		_, err := s.db.Exec(query)
		if err != nil {
			return nil, fmt.Errorf("creating %s table: %s", name, err)
		}
	}

	// In case feed already exists, delete all records
	for name := range tables {
		_, err := s.db.Exec(`DELETE FROM `+name+` WHERE hash = $1`, hash)
		if err != nil {
			return nil, fmt.Errorf("deleting %s records: %s", name, err)
		}
	}

	return &PSQLFeedWriter{
		id: hash,
		db: s.db,
	}, nil
}

func (w *PSQLFeedWriter) WriteStop(stop *model.Stop) error {
	_, err := w.db.Exec(`
INSERT INTO stops (hash, stop_id, stop_name, stop_lat, stop_lon)
VALUES ($1, $2, $3, $4, $5)`,
		w.id,
		stop.ID,
		stop.Name,
		stop.Lat,
		stop.Lon,
	)
	if err != nil {
		return fmt.Errorf("inserting stop: %w", err)
	}
	return nil
}

func (w *PSQLFeedWriter) WriteRoute(route *model.Route) error {
	_, err := w.db.Exec(`
INSERT INTO routes (hash, route_id, route_short_name, route_long_name, route_color, route_mode)
VALUES ($1, $2, $3, $4, $5, $6)`,
		w.id,
		route.ID,
		route.ShortName,
		route.LongName,
		route.Color,
		route.Mode,
	)
	if err != nil {
		return fmt.Errorf("inserting route: %w", err)
	}
	return nil
}

func (w *PSQLFeedWriter) WriteTrip(trip *model.Trip) error {
	_, err := w.db.Exec(`
INSERT INTO trips (hash, trip_id, route_id, service_id, shape_id, trip_headsign)
VALUES ($1, $2, $3, $4, $5, $6)`,
		w.id,
		trip.ID,
		trip.RouteID,
		trip.ServiceID,
		trip.ShapeID,
		trip.Headsign,
	)
	if err != nil {
		return fmt.Errorf("inserting trip: %w", err)
	}
	return nil
}

func (w *PSQLFeedWriter) WriteCalendar(cal *model.Calendar) error {
	mon, tue, wed, thu, fri, sat, sun := 0, 0, 0, 0, 0, 0, 0
	if cal.Weekday&(1<<time.Monday) != 0 {
		mon = 1
	}
	if cal.Weekday&(1<<time.Tuesday) != 0 {
		tue = 1
	}
	if cal.Weekday&(1<<time.Wednesday) != 0 {
		wed = 1
	}
	if cal.Weekday&(1<<time.Thursday) != 0 {
		thu = 1
	}
	if cal.Weekday&(1<<time.Friday) != 0 {
		fri = 1
	}
	if cal.Weekday&(1<<time.Saturday) != 0 {
		sat = 1
	}
	if cal.Weekday&(1<<time.Sunday) != 0 {
		sun = 1
	}

	_, err := w.db.Exec(`
INSERT INTO calendar (hash, service_id, start_date, end_date, monday, tuesday, wednesday, thursday, friday, saturday, sunday)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		w.id,
		cal.ServiceID,
		cal.StartDate,
		cal.EndDate,
		mon, tue, wed, thu, fri, sat, sun,
	)
	if err != nil {
		return fmt.Errorf("inserting calendar: %w", err)
	}

	return nil
}

func (w *PSQLFeedWriter) WriteCalendarDate(cd *model.CalendarDate) error {
	_, err := w.db.Exec(`
INSERT INTO calendar_dates (hash, service_id, date, exception_type)
VALUES ($1, $2, $3, $4)`,
		w.id,
		cd.ServiceID,
		cd.Date,
		cd.ExceptionType,
	)
	if err != nil {
		return fmt.Errorf("inserting calendar date: %w", err)
	}

	return nil
}

func (w *PSQLFeedWriter) BeginStopTimes() error {
	return nil
}

func (w *PSQLFeedWriter) WriteStopTime(stopTime *model.StopTime) error {
	w.stopTimeBuf = append(w.stopTimeBuf, stopTime)

	if len(w.stopTimeBuf) >= PSQLStopTimeBatchSize {
		err := w.flushStopTimes()
		if err != nil {
			return fmt.Errorf("flushing stop times: %w", err)
		}
	}

	return nil
}

func (w *PSQLFeedWriter) EndStopTimes() error {
	if len(w.stopTimeBuf) > 0 {
		err := w.flushStopTimes()
		if err != nil {
			return fmt.Errorf("flushing stop times: %w", err)
		}
	}
	return nil
}

func (w *PSQLFeedWriter) flushStopTimes() error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyIn(
		"stop_times", "hash", "trip_id", "stop_id", "arrival_time", "departure_time", "stop_sequence",
	))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, st := range w.stopTimeBuf {
		_, err = stmt.Exec(
			w.id, st.TripID, st.StopID, st.Arrival, st.Departure, st.StopSequence,
		)
		if err != nil {
			return fmt.Errorf("COPY stop_time: %w", err)
		}
	}

	_, err = stmt.Exec()
	if err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	w.stopTimeBuf = nil

	return nil
}

func (w *PSQLFeedWriter) BeginShapes() error {
	return nil
}

func (w *PSQLFeedWriter) WriteShapePoint(pt *model.ShapePoint) error {
	w.shapeBuf = append(w.shapeBuf, pt)

	if len(w.shapeBuf) >= PSQLShapeBatchSize {
		err := w.flushShapes()
		if err != nil {
			return fmt.Errorf("flushing shapes: %w", err)
		}
	}

	return nil
}

func (w *PSQLFeedWriter) EndShapes() error {
	if len(w.shapeBuf) > 0 {
		err := w.flushShapes()
		if err != nil {
			return fmt.Errorf("flushing shapes: %w", err)
		}
	}
	return nil
}

func (w *PSQLFeedWriter) flushShapes() error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyIn(
		"shapes", "hash", "shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence",
	))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, pt := range w.shapeBuf {
		_, err = stmt.Exec(
			w.id, pt.ShapeID, pt.Lat, pt.Lon, pt.Sequence,
		)
		if err != nil {
			return fmt.Errorf("COPY shape point: %w", err)
		}
	}

	_, err = stmt.Exec()
	if err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	w.shapeBuf = nil

	return nil
}

func (w *PSQLFeedWriter) Close() error {
	return nil
}

func (r *PSQLFeedReader) ActiveServices(date string) ([]string, error) {
	parsedDate, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", date)
	}

	weekday := strings.ToLower(parsedDate.Weekday().String())

	// Removal wins over both the weekly pattern and added
	// exceptions.
	rows, err := r.db.Query(`
WITH
Exceptions AS (
	SELECT service_id, exception_type
	FROM calendar_dates
	WHERE hash = $1 AND date = $2
),
Regular AS (
	SELECT service_id
	FROM calendar
	WHERE hash = $1 AND
	      `+weekday+` = 1 AND
	      start_date <= $2 AND
	      end_date >= $2
)
SELECT service_id
FROM (
	SELECT service_id FROM Regular
	UNION
	SELECT service_id FROM Exceptions WHERE exception_type = 1
) activeservice
WHERE service_id NOT IN (
	SELECT service_id FROM Exceptions WHERE exception_type = 2
)
`, r.id, date)
	if err != nil {
		return nil, fmt.Errorf("querying for active services: %w", err)
	}
	defer rows.Close()

	activeServices := []string{}
	for rows.Next() {
		var serviceID string
		err = rows.Scan(&serviceID)
		if err != nil {
			return nil, fmt.Errorf("scanning active services: %w", err)
		}
		activeServices = append(activeServices, serviceID)
	}

	return activeServices, nil
}

func (r *PSQLFeedReader) ServicesByDayType(dayType model.DayType) ([]string, error) {
	query := `
SELECT service_id
FROM calendar
WHERE hash = $1 AND monday = 1 AND tuesday = 1 AND wednesday = 1 AND thursday = 1 AND friday = 1`
	if dayType == model.DayTypeWeekends {
		query = `
SELECT service_id
FROM calendar
WHERE hash = $1 AND (saturday = 1 OR sunday = 1)`
	}

	rows, err := r.db.Query(query, r.id)
	if err != nil {
		return nil, fmt.Errorf("querying for day-type services: %w", err)
	}
	defer rows.Close()

	services := []string{}
	for rows.Next() {
		var serviceID string
		err = rows.Scan(&serviceID)
		if err != nil {
			return nil, fmt.Errorf("scanning day-type services: %w", err)
		}
		services = append(services, serviceID)
	}

	return services, nil
}

func (r *PSQLFeedReader) Routes() ([]*model.Route, error) {
	return r.queryRoutes(`
SELECT route_id, route_short_name, route_long_name, route_color, route_mode
FROM routes
WHERE hash = $1`, r.id)
}

func (r *PSQLFeedReader) RoutesByMode(mode model.Mode) ([]*model.Route, error) {
	return r.queryRoutes(`
SELECT route_id, route_short_name, route_long_name, route_color, route_mode
FROM routes
WHERE hash = $1 AND route_mode = $2
ORDER BY route_short_name`, r.id, mode)
}

func (r *PSQLFeedReader) RoutesThroughStop(stopID string) ([]*model.Route, error) {
	return r.queryRoutes(`
SELECT DISTINCT routes.route_id, routes.route_short_name, routes.route_long_name, routes.route_color, routes.route_mode
FROM routes
INNER JOIN trips ON trips.hash = routes.hash AND trips.route_id = routes.route_id
INNER JOIN stop_times ON stop_times.hash = trips.hash AND stop_times.trip_id = trips.trip_id
WHERE routes.hash = $1 AND stop_times.stop_id = $2
ORDER BY routes.route_id`, r.id, stopID)
}

func (r *PSQLFeedReader) queryRoutes(query string, params ...interface{}) ([]*model.Route, error) {
	rows, err := r.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	routes := []*model.Route{}
	for rows.Next() {
		route := &model.Route{}
		err := rows.Scan(
			&route.ID,
			&route.ShortName,
			&route.LongName,
			&route.Color,
			&route.Mode,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, route)
	}

	return routes, nil
}

func (r *PSQLFeedReader) RouteByID(routeID string) (*model.Route, error) {
	route := &model.Route{}
	err := r.db.QueryRow(`
SELECT route_id, route_short_name, route_long_name, route_color, route_mode
FROM routes
WHERE hash = $1 AND route_id = $2`, r.id, routeID).Scan(
		&route.ID,
		&route.ShortName,
		&route.LongName,
		&route.Color,
		&route.Mode,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying route: %w", err)
	}
	return route, nil
}

func (r *PSQLFeedReader) TripByID(tripID string) (*model.Trip, error) {
	trip := &model.Trip{}
	err := r.db.QueryRow(`
SELECT trip_id, route_id, service_id, shape_id, trip_headsign
FROM trips
WHERE hash = $1 AND trip_id = $2`, r.id, tripID).Scan(
		&trip.ID,
		&trip.RouteID,
		&trip.ServiceID,
		&trip.ShapeID,
		&trip.Headsign,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying trip: %w", err)
	}
	return trip, nil
}

func (r *PSQLFeedReader) StopByID(stopID string) (*model.Stop, error) {
	stop := &model.Stop{}
	err := r.db.QueryRow(`
SELECT stop_id, stop_name, stop_lat, stop_lon
FROM stops
WHERE hash = $1 AND stop_id = $2`, r.id, stopID).Scan(
		&stop.ID,
		&stop.Name,
		&stop.Lat,
		&stop.Lon,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying stop: %w", err)
	}
	return stop, nil
}

func (r *PSQLFeedReader) Stops() ([]*model.Stop, error) {
	rows, err := r.db.Query(`
SELECT stop_id, stop_name, stop_lat, stop_lon
FROM stops
WHERE hash = $1`, r.id)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []*model.Stop{}
	for rows.Next() {
		stop := &model.Stop{}
		err := rows.Scan(
			&stop.ID,
			&stop.Name,
			&stop.Lat,
			&stop.Lon,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		stops = append(stops, stop)
	}

	return stops, nil
}

func (r *PSQLFeedReader) Trips() ([]*model.Trip, error) {
	rows, err := r.db.Query(`
SELECT trip_id, route_id, service_id, shape_id, trip_headsign
FROM trips
WHERE hash = $1`, r.id)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	return scanTrips(rows)
}

func (r *PSQLFeedReader) TripsByRoute(routeID string, serviceIDs []string) ([]*model.Trip, error) {
	query := `
SELECT trip_id, route_id, service_id, shape_id, trip_headsign
FROM trips
WHERE hash = $1 AND route_id = $2`
	params := []interface{}{r.id, routeID}

	if len(serviceIDs) > 0 {
		query += " AND service_id = ANY($3)"
		params = append(params, pq.Array(serviceIDs))
	}

	query += " ORDER BY trip_id"

	rows, err := r.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying trips by route: %w", err)
	}
	defer rows.Close()

	return scanTrips(rows)
}

func (r *PSQLFeedReader) TripStopIDs(tripID string) ([]string, error) {
	rows, err := r.db.Query(`
SELECT stop_id
FROM stop_times
WHERE hash = $1 AND trip_id = $2
ORDER BY stop_sequence`, r.id, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying trip stop sequence: %w", err)
	}
	defer rows.Close()

	stopIDs := []string{}
	for rows.Next() {
		var stopID string
		err = rows.Scan(&stopID)
		if err != nil {
			return nil, fmt.Errorf("scanning trip stop sequence: %w", err)
		}
		stopIDs = append(stopIDs, stopID)
	}

	return stopIDs, nil
}

func (r *PSQLFeedReader) TripPatterns(tripIDs []string) (map[string][]string, error) {
	patterns := map[string][]string{}
	if len(tripIDs) == 0 {
		return patterns, nil
	}

	rows, err := r.db.Query(`
SELECT trip_id, stop_id
FROM stop_times
WHERE hash = $1 AND trip_id = ANY($2)
ORDER BY trip_id, stop_sequence`, r.id, pq.Array(tripIDs))
	if err != nil {
		return nil, fmt.Errorf("querying trip patterns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tripID, stopID string
		err = rows.Scan(&tripID, &stopID)
		if err != nil {
			return nil, fmt.Errorf("scanning trip pattern: %w", err)
		}
		patterns[tripID] = append(patterns[tripID], stopID)
	}

	return patterns, nil
}

func (r *PSQLFeedReader) StopTimesAtStop(stopID string, tripIDs []string) ([]*model.StopTime, error) {
	if len(tripIDs) == 0 {
		return []*model.StopTime{}, nil
	}

	rows, err := r.db.Query(`
SELECT trip_id, stop_id, arrival_time, departure_time, stop_sequence
FROM stop_times
WHERE hash = $1 AND stop_id = $2 AND trip_id = ANY($3)`, r.id, stopID, pq.Array(tripIDs))
	if err != nil {
		return nil, fmt.Errorf("querying stop times at stop: %w", err)
	}
	defer rows.Close()

	return scanStopTimes(rows)
}

func (r *PSQLFeedReader) StopTimesForTrip(tripID string) ([]*model.StopTime, error) {
	rows, err := r.db.Query(`
SELECT trip_id, stop_id, arrival_time, departure_time, stop_sequence
FROM stop_times
WHERE hash = $1 AND trip_id = $2
ORDER BY stop_sequence`, r.id, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying stop times for trip: %w", err)
	}
	defer rows.Close()

	return scanStopTimes(rows)
}

func (r *PSQLFeedReader) StopTimes() ([]*model.StopTime, error) {
	rows, err := r.db.Query(`
SELECT trip_id, stop_id, arrival_time, departure_time, stop_sequence
FROM stop_times
WHERE hash = $1`, r.id)
	if err != nil {
		return nil, fmt.Errorf("querying stop times: %w", err)
	}
	defer rows.Close()

	return scanStopTimes(rows)
}

func (r *PSQLFeedReader) TripStops(tripID string) ([]*model.TripCall, error) {
	rows, err := r.db.Query(`
SELECT stops.stop_id, stops.stop_name, stops.stop_lat, stops.stop_lon,
       stop_times.arrival_time, stop_times.departure_time, stop_times.stop_sequence
FROM stop_times
INNER JOIN stops ON stops.hash = stop_times.hash AND stops.stop_id = stop_times.stop_id
WHERE stop_times.hash = $1 AND stop_times.trip_id = $2
ORDER BY stop_times.stop_sequence`, r.id, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying trip stops: %w", err)
	}
	defer rows.Close()

	calls := []*model.TripCall{}
	for rows.Next() {
		call := &model.TripCall{}
		err := rows.Scan(
			&call.Stop.ID,
			&call.Stop.Name,
			&call.Stop.Lat,
			&call.Stop.Lon,
			&call.Arrival,
			&call.Departure,
			&call.StopSequence,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trip stop: %w", err)
		}
		calls = append(calls, call)
	}

	return calls, nil
}

func (r *PSQLFeedReader) ShapePoints(shapeID string) ([]*model.ShapePoint, error) {
	rows, err := r.db.Query(`
SELECT shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence
FROM shapes
WHERE hash = $1 AND shape_id = $2
ORDER BY shape_pt_sequence`, r.id, shapeID)
	if err != nil {
		return nil, fmt.Errorf("querying shape points: %w", err)
	}
	defer rows.Close()

	points := []*model.ShapePoint{}
	for rows.Next() {
		pt := &model.ShapePoint{}
		err := rows.Scan(
			&pt.ShapeID,
			&pt.Lat,
			&pt.Lon,
			&pt.Sequence,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning shape point: %w", err)
		}
		points = append(points, pt)
	}

	return points, nil
}

func (r *PSQLFeedReader) Calendars() ([]*model.Calendar, error) {
	rows, err := r.db.Query(`
SELECT service_id, start_date, end_date, monday, tuesday, wednesday, thursday, friday, saturday, sunday
FROM calendar
WHERE hash = $1`, r.id)
	if err != nil {
		return nil, fmt.Errorf("querying calendar: %w", err)
	}
	defer rows.Close()

	calendars := []*model.Calendar{}
	for rows.Next() {
		var serviceID, startDate, endDate string
		var monday, tuesday, wednesday, thursday, friday, saturday, sunday bool
		err := rows.Scan(
			&serviceID,
			&startDate,
			&endDate,
			&monday,
			&tuesday,
			&wednesday,
			&thursday,
			&friday,
			&saturday,
			&sunday,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning calendar: %w", err)
		}
		weekday := int8(0)
		if monday {
			weekday |= 1 << time.Monday
		}
		if tuesday {
			weekday |= 1 << time.Tuesday
		}
		if wednesday {
			weekday |= 1 << time.Wednesday
		}
		if thursday {
			weekday |= 1 << time.Thursday
		}
		if friday {
			weekday |= 1 << time.Friday
		}
		if saturday {
			weekday |= 1 << time.Saturday
		}
		if sunday {
			weekday |= 1 << time.Sunday
		}
		calendars = append(calendars, &model.Calendar{
			ServiceID: serviceID,
			StartDate: startDate,
			EndDate:   endDate,
			Weekday:   weekday,
		})
	}

	return calendars, nil
}

func (r *PSQLFeedReader) CalendarDates() ([]*model.CalendarDate, error) {
	rows, err := r.db.Query(`
SELECT service_id, date, exception_type
FROM calendar_dates
WHERE hash = $1`, r.id)
	if err != nil {
		return nil, fmt.Errorf("querying calendar dates: %w", err)
	}
	defer rows.Close()

	return scanCalendarDates(rows)
}

func (r *PSQLFeedReader) CalendarDatesByService(serviceID string) ([]*model.CalendarDate, error) {
	rows, err := r.db.Query(`
SELECT service_id, date, exception_type
FROM calendar_dates
WHERE hash = $1 AND service_id = $2
ORDER BY date`, r.id, serviceID)
	if err != nil {
		return nil, fmt.Errorf("querying calendar dates: %w", err)
	}
	defer rows.Close()

	return scanCalendarDates(rows)
}
