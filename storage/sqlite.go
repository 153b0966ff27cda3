package storage

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"baltictransit.dev/schedule/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	feedDB *sql.DB
	feeds  map[string]*sql.DB
}

type SQLiteFeedWriter struct {
	db *sql.DB

	stopTimeInsertQuery *sql.Stmt
	stopTimeInsertTx    *sql.Tx
	shapeInsertQuery    *sql.Stmt
	shapeInsertTx       *sql.Tx
}

type SQLiteFeedReader struct {
	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/schedule.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS feed (
    hash TEXT,
    url TEXT NOT NULL,
    retrieved_at TIMESTAMP NOT NULL,
    calendar_start TEXT NOT NULL,
    calendar_end TEXT NOT NULL,
PRIMARY KEY (hash, url)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating feed table: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		feedDB: db,
		feeds:  map[string]*sql.DB{},
	}, nil
}

func (s *SQLiteStorage) ListFeeds(filter ListFeedsFilter) ([]*FeedMetadata, error) {
	query := `
SELECT hash, url, retrieved_at, calendar_start, calendar_end
FROM feed`

	conditions := []string{}
	params := []interface{}{}
	if filter.URL != "" {
		conditions = append(conditions, "url = ?")
		params = append(params, filter.URL)
	}
	if filter.Hash != "" {
		conditions = append(conditions, "hash = ?")
		params = append(params, filter.Hash)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY retrieved_at DESC"

	rows, err := s.feedDB.Query(query, params...)
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
		feeds = append(feeds, &feed)
	}

	return feeds, nil
}

func (s *SQLiteStorage) WriteFeedMetadata(feed *FeedMetadata) error {
	_, err := s.feedDB.Exec(`
INSERT INTO feed (hash, url, retrieved_at, calendar_start, calendar_end)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (hash, url) DO UPDATE SET
    retrieved_at = excluded.retrieved_at,
    calendar_start = excluded.calendar_start,
    calendar_end = excluded.calendar_end
`,
		feed.Hash,
		feed.URL,
		feed.RetrievedAt,
		feed.CalendarStartDate,
		feed.CalendarEndDate,
	)
	if err != nil {
		return fmt.Errorf("writing feed metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteFeedMetadata(url string, hash string) error {
	_, err := s.feedDB.Exec(`
DELETE FROM feed
WHERE url = ? AND hash = ?
`, url, hash)
	return err
}

func (s *SQLiteStorage) GetReader(feedID string) (FeedReader, error) {
	db, found := s.feeds[feedID]
	if found {
		return &SQLiteFeedReader{db: db}, nil
	}
	if !s.OnDisk {
		return nil, fmt.Errorf("feed %s does not exist", feedID)
	}

	sourceName := s.Directory + "/" + feedID + ".db"
	if _, err := os.Stat(sourceName); os.IsNotExist(err) {
		return nil, fmt.Errorf("feed %s does not exist at %s", feedID, sourceName)
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s.feeds[feedID] = db

	return &SQLiteFeedReader{db: db}, nil
}

func (s *SQLiteStorage) GetWriter(feedID string) (FeedWriter, error) {
	sourceName := ":memory:"
	if s.OnDisk {
		sourceName = s.Directory + "/" + feedID + ".db"
		// delete file if it exists
		if _, err := os.Stat(sourceName); err == nil {
			err := os.Remove(sourceName)
			if err != nil {
				return nil, fmt.Errorf("removing existing database: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for name, query := range map[string]string{
		"stops": `
CREATE TABLE stops (
    stop_id TEXT PRIMARY KEY,
    stop_name TEXT NOT NULL,
    stop_lat REAL NOT NULL,
    stop_lon REAL NOT NULL
);`,
		"routes": `
CREATE TABLE routes (
    route_id TEXT PRIMARY KEY,
    route_short_name TEXT,
    route_long_name TEXT NOT NULL,
    route_color TEXT,
    route_mode INTEGER NOT NULL
);
CREATE INDEX routes_mode ON routes (route_mode);
`,
		"trips": `
CREATE TABLE trips (
    trip_id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    shape_id TEXT,
    trip_headsign TEXT
);
CREATE INDEX trips_route_id ON trips (route_id);
CREATE INDEX trips_service_id ON trips (service_id);
`,
		"stop_times": `
CREATE TABLE stop_times (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    arrival_time TEXT NOT NULL,
    departure_time TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL
);
CREATE INDEX stop_times_trip_id ON stop_times (trip_id);
CREATE INDEX stop_times_stop_id ON stop_times (stop_id);
`,
		"calendar": `
CREATE TABLE calendar (
    service_id TEXT PRIMARY KEY,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    monday INTEGER NOT NULL,
    tuesday INTEGER NOT NULL,
    wednesday INTEGER NOT NULL,
    thursday INTEGER NOT NULL,
    friday INTEGER NOT NULL,
    saturday INTEGER NOT NULL,
    sunday INTEGER NOT NULL
);`,
		"calendar_dates": `
CREATE TABLE calendar_dates (
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    exception_type INTEGER NOT NULL
);
CREATE INDEX calendar_dates_date ON calendar_dates (date);
`,
		"shapes": `
CREATE TABLE shapes (
    shape_id TEXT NOT NULL,
    shape_pt_lat REAL NOT NULL,
    shape_pt_lon REAL NOT NULL,
    shape_pt_sequence INTEGER NOT NULL
);
CREATE INDEX shapes_shape_id ON shapes (shape_id);
`,
	} {
		_, err = db.Exec(query)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating %s table: %s", name, err)
		}
	}

	s.feeds[feedID] = db

	return &SQLiteFeedWriter{db: db}, nil
}

func (f *SQLiteFeedWriter) WriteStop(stop *model.Stop) error {
	_, err := f.db.Exec(`
INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon)
VALUES (?, ?, ?, ?)`,
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

func (f *SQLiteFeedWriter) WriteRoute(route *model.Route) error {
	_, err := f.db.Exec(`
INSERT INTO routes (route_id, route_short_name, route_long_name, route_color, route_mode)
VALUES (?, ?, ?, ?, ?)`,
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

func (f *SQLiteFeedWriter) WriteTrip(trip *model.Trip) error {
	_, err := f.db.Exec(`
INSERT INTO trips (trip_id, route_id, service_id, shape_id, trip_headsign)
VALUES (?, ?, ?, ?, ?)`,
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

func (f *SQLiteFeedWriter) WriteCalendar(cal *model.Calendar) error {
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

	_, err := f.db.Exec(`
INSERT INTO calendar (service_id, start_date, end_date, monday, tuesday, wednesday, thursday, friday, saturday, sunday)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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

func (f *SQLiteFeedWriter) WriteCalendarDate(cd *model.CalendarDate) error {
	_, err := f.db.Exec(`
INSERT INTO calendar_dates (service_id, date, exception_type)
VALUES (?, ?, ?)`,
		cd.ServiceID,
		cd.Date,
		cd.ExceptionType,
	)
	if err != nil {
		return fmt.Errorf("inserting calendar date: %w", err)
	}

	return nil
}

func (f *SQLiteFeedWriter) BeginStopTimes() error {
	// transaction with prepared statement.
	var err error
	f.stopTimeInsertTx, err = f.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning stop_time insert transaction: %w", err)
	}

	f.stopTimeInsertQuery, err = f.stopTimeInsertTx.Prepare(`
INSERT INTO stop_times (trip_id, stop_id, arrival_time, departure_time, stop_sequence)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		f.stopTimeInsertTx.Rollback()
		f.stopTimeInsertTx = nil
		return fmt.Errorf("preparing stop_time insert: %w", err)
	}

	return nil
}

func (f *SQLiteFeedWriter) WriteStopTime(stopTime *model.StopTime) error {
	_, err := f.stopTimeInsertQuery.Exec(
		stopTime.TripID,
		stopTime.StopID,
		stopTime.Arrival,
		stopTime.Departure,
		stopTime.StopSequence,
	)
	if err != nil {
		f.stopTimeInsertQuery.Close()
		f.stopTimeInsertTx.Rollback()
		f.stopTimeInsertTx = nil
		f.stopTimeInsertQuery = nil
		return fmt.Errorf("inserting stop_time: %w", err)
	}

	return nil
}

func (f *SQLiteFeedWriter) EndStopTimes() error {
	// commit transaction and clean up
	f.stopTimeInsertQuery.Close()
	err := f.stopTimeInsertTx.Commit()
	if err != nil {
		return fmt.Errorf("committing stop_time insert transaction: %w", err)
	}
	f.stopTimeInsertTx = nil
	f.stopTimeInsertQuery = nil

	return nil
}

func (f *SQLiteFeedWriter) BeginShapes() error {
	var err error
	f.shapeInsertTx, err = f.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning shape insert transaction: %w", err)
	}

	f.shapeInsertQuery, err = f.shapeInsertTx.Prepare(`
INSERT INTO shapes (shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence)
VALUES (?, ?, ?, ?)`)
	if err != nil {
		f.shapeInsertTx.Rollback()
		f.shapeInsertTx = nil
		return fmt.Errorf("preparing shape insert: %w", err)
	}

	return nil
}

func (f *SQLiteFeedWriter) WriteShapePoint(pt *model.ShapePoint) error {
	_, err := f.shapeInsertQuery.Exec(
		pt.ShapeID,
		pt.Lat,
		pt.Lon,
		pt.Sequence,
	)
	if err != nil {
		f.shapeInsertQuery.Close()
		f.shapeInsertTx.Rollback()
		f.shapeInsertTx = nil
		f.shapeInsertQuery = nil
		return fmt.Errorf("inserting shape point: %w", err)
	}

	return nil
}

func (f *SQLiteFeedWriter) EndShapes() error {
	f.shapeInsertQuery.Close()
	err := f.shapeInsertTx.Commit()
	if err != nil {
		return fmt.Errorf("committing shape insert transaction: %w", err)
	}
	f.shapeInsertTx = nil
	f.shapeInsertQuery = nil

	return nil
}

func (f *SQLiteFeedWriter) Close() error {
	_, err := f.db.Exec(`ANALYZE;`)
	if err != nil {
		f.db.Close()
		return fmt.Errorf("analyzing database: %s", err)
	}

	return nil
}

func placeholders(n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = "?"
	}
	return strings.Join(p, ", ")
}

func (f *SQLiteFeedReader) ActiveServices(date string) ([]string, error) {
	parsedDate, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", date)
	}

	var weekday string
	switch parsedDate.Weekday() {
	case time.Monday:
		weekday = "monday"
	case time.Tuesday:
		weekday = "tuesday"
	case time.Wednesday:
		weekday = "wednesday"
	case time.Thursday:
		weekday = "thursday"
	case time.Friday:
		weekday = "friday"
	case time.Saturday:
		weekday = "saturday"
	case time.Sunday:
		weekday = "sunday"
	}

	// Removal must win even when the same service also has an
	// added exception for the date, hence the NOT IN on the union.
	rows, err := f.db.Query(`
WITH
Exceptions AS (
	SELECT service_id, exception_type
	FROM calendar_dates
	WHERE date = ?
),
Regular AS (
	SELECT service_id
	FROM calendar
	WHERE `+weekday+` = 1 AND
	      start_date <= ? AND
	      end_date >= ?
)
SELECT service_id
FROM (
	SELECT service_id FROM Regular
	UNION
	SELECT service_id FROM Exceptions WHERE exception_type = 1
)
WHERE service_id NOT IN (
	SELECT service_id FROM Exceptions WHERE exception_type = 2
)
`, date, date, date)
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

func (f *SQLiteFeedReader) ServicesByDayType(dayType model.DayType) ([]string, error) {
	query := `
SELECT service_id
FROM calendar
WHERE monday = 1 AND tuesday = 1 AND wednesday = 1 AND thursday = 1 AND friday = 1`
	if dayType == model.DayTypeWeekends {
		query = `
SELECT service_id
FROM calendar
WHERE saturday = 1 OR sunday = 1`
	}

	rows, err := f.db.Query(query)
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

func (f *SQLiteFeedReader) Routes() ([]*model.Route, error) {
	return f.queryRoutes(`
SELECT route_id, route_short_name, route_long_name, route_color, route_mode
FROM routes`)
}

func (f *SQLiteFeedReader) RoutesByMode(mode model.Mode) ([]*model.Route, error) {
	return f.queryRoutes(`
SELECT route_id, route_short_name, route_long_name, route_color, route_mode
FROM routes
WHERE route_mode = ?
ORDER BY route_short_name`, mode)
}

func (f *SQLiteFeedReader) RoutesThroughStop(stopID string) ([]*model.Route, error) {
	return f.queryRoutes(`
SELECT DISTINCT routes.route_id, routes.route_short_name, routes.route_long_name, routes.route_color, routes.route_mode
FROM routes
INNER JOIN trips ON trips.route_id = routes.route_id
INNER JOIN stop_times ON stop_times.trip_id = trips.trip_id
WHERE stop_times.stop_id = ?
ORDER BY routes.route_id`, stopID)
}

func (f *SQLiteFeedReader) queryRoutes(query string, params ...interface{}) ([]*model.Route, error) {
	rows, err := f.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	routes := []*model.Route{}
	for rows.Next() {
		r := &model.Route{}
		err := rows.Scan(
			&r.ID,
			&r.ShortName,
			&r.LongName,
			&r.Color,
			&r.Mode,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, r)
	}

	return routes, nil
}

func (f *SQLiteFeedReader) RouteByID(routeID string) (*model.Route, error) {
	r := &model.Route{}
	err := f.db.QueryRow(`
SELECT route_id, route_short_name, route_long_name, route_color, route_mode
FROM routes
WHERE route_id = ?`, routeID).Scan(
		&r.ID,
		&r.ShortName,
		&r.LongName,
		&r.Color,
		&r.Mode,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying route: %w", err)
	}
	return r, nil
}

func (f *SQLiteFeedReader) TripByID(tripID string) (*model.Trip, error) {
	t := &model.Trip{}
	err := f.db.QueryRow(`
SELECT trip_id, route_id, service_id, shape_id, trip_headsign
FROM trips
WHERE trip_id = ?`, tripID).Scan(
		&t.ID,
		&t.RouteID,
		&t.ServiceID,
		&t.ShapeID,
		&t.Headsign,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying trip: %w", err)
	}
	return t, nil
}

func (f *SQLiteFeedReader) StopByID(stopID string) (*model.Stop, error) {
	s := &model.Stop{}
	err := f.db.QueryRow(`
SELECT stop_id, stop_name, stop_lat, stop_lon
FROM stops
WHERE stop_id = ?`, stopID).Scan(
		&s.ID,
		&s.Name,
		&s.Lat,
		&s.Lon,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying stop: %w", err)
	}
	return s, nil
}

func (f *SQLiteFeedReader) Stops() ([]*model.Stop, error) {
	rows, err := f.db.Query(`
SELECT stop_id, stop_name, stop_lat, stop_lon
FROM stops`)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []*model.Stop{}
	for rows.Next() {
		s := &model.Stop{}
		err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Lat,
			&s.Lon,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		stops = append(stops, s)
	}

	return stops, nil
}

func (f *SQLiteFeedReader) Trips() ([]*model.Trip, error) {
	rows, err := f.db.Query(`
SELECT trip_id, route_id, service_id, shape_id, trip_headsign
FROM trips`)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	return scanTrips(rows)
}

func (f *SQLiteFeedReader) TripsByRoute(routeID string, serviceIDs []string) ([]*model.Trip, error) {
	query := `
SELECT trip_id, route_id, service_id, shape_id, trip_headsign
FROM trips
WHERE route_id = ?`
	params := []interface{}{routeID}

	if len(serviceIDs) > 0 {
		query += " AND service_id IN (" + placeholders(len(serviceIDs)) + ")"
		for _, sid := range serviceIDs {
			params = append(params, sid)
		}
	}

	query += " ORDER BY trip_id"

	rows, err := f.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying trips by route: %w", err)
	}
	defer rows.Close()

	return scanTrips(rows)
}

func scanTrips(rows *sql.Rows) ([]*model.Trip, error) {
	trips := []*model.Trip{}
	for rows.Next() {
		t := &model.Trip{}
		err := rows.Scan(
			&t.ID,
			&t.RouteID,
			&t.ServiceID,
			&t.ShapeID,
			&t.Headsign,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		trips = append(trips, t)
	}

	return trips, nil
}

func (f *SQLiteFeedReader) TripStopIDs(tripID string) ([]string, error) {
	rows, err := f.db.Query(`
SELECT stop_id
FROM stop_times
WHERE trip_id = ?
ORDER BY stop_sequence`, tripID)
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

func (f *SQLiteFeedReader) TripPatterns(tripIDs []string) (map[string][]string, error) {
	patterns := map[string][]string{}
	if len(tripIDs) == 0 {
		return patterns, nil
	}

	params := []interface{}{}
	for _, id := range tripIDs {
		params = append(params, id)
	}

	rows, err := f.db.Query(`
SELECT trip_id, stop_id
FROM stop_times
WHERE trip_id IN (`+placeholders(len(tripIDs))+`)
ORDER BY trip_id, stop_sequence`, params...)
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

func (f *SQLiteFeedReader) StopTimesAtStop(stopID string, tripIDs []string) ([]*model.StopTime, error) {
	if len(tripIDs) == 0 {
		return []*model.StopTime{}, nil
	}

	params := []interface{}{stopID}
	for _, id := range tripIDs {
		params = append(params, id)
	}

	rows, err := f.db.Query(`
SELECT trip_id, stop_id, arrival_time, departure_time, stop_sequence
FROM stop_times
WHERE stop_id = ? AND trip_id IN (`+placeholders(len(tripIDs))+`)`, params...)
	if err != nil {
		return nil, fmt.Errorf("querying stop times at stop: %w", err)
	}
	defer rows.Close()

	return scanStopTimes(rows)
}

func (f *SQLiteFeedReader) StopTimesForTrip(tripID string) ([]*model.StopTime, error) {
	rows, err := f.db.Query(`
SELECT trip_id, stop_id, arrival_time, departure_time, stop_sequence
FROM stop_times
WHERE trip_id = ?
ORDER BY stop_sequence`, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying stop times for trip: %w", err)
	}
	defer rows.Close()

	return scanStopTimes(rows)
}

func scanStopTimes(rows *sql.Rows) ([]*model.StopTime, error) {
	stopTimes := []*model.StopTime{}
	for rows.Next() {
		st := &model.StopTime{}
		err := rows.Scan(
			&st.TripID,
			&st.StopID,
			&st.Arrival,
			&st.Departure,
			&st.StopSequence,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop time: %w", err)
		}
		stopTimes = append(stopTimes, st)
	}

	return stopTimes, nil
}

func (f *SQLiteFeedReader) StopTimes() ([]*model.StopTime, error) {
	rows, err := f.db.Query(`
SELECT trip_id, stop_id, arrival_time, departure_time, stop_sequence
FROM stop_times`)
	if err != nil {
		return nil, fmt.Errorf("querying stop times: %w", err)
	}
	defer rows.Close()

	return scanStopTimes(rows)
}

func (f *SQLiteFeedReader) TripStops(tripID string) ([]*model.TripCall, error) {
	rows, err := f.db.Query(`
SELECT stops.stop_id, stops.stop_name, stops.stop_lat, stops.stop_lon,
       stop_times.arrival_time, stop_times.departure_time, stop_times.stop_sequence
FROM stop_times
INNER JOIN stops ON stop_times.stop_id = stops.stop_id
WHERE stop_times.trip_id = ?
ORDER BY stop_times.stop_sequence`, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying trip stops: %w", err)
	}
	defer rows.Close()

	calls := []*model.TripCall{}
	for rows.Next() {
		c := &model.TripCall{}
		err := rows.Scan(
			&c.Stop.ID,
			&c.Stop.Name,
			&c.Stop.Lat,
			&c.Stop.Lon,
			&c.Arrival,
			&c.Departure,
			&c.StopSequence,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trip stop: %w", err)
		}
		calls = append(calls, c)
	}

	return calls, nil
}

func (f *SQLiteFeedReader) ShapePoints(shapeID string) ([]*model.ShapePoint, error) {
	rows, err := f.db.Query(`
SELECT shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence
FROM shapes
WHERE shape_id = ?
ORDER BY shape_pt_sequence`, shapeID)
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

func (f *SQLiteFeedReader) Calendars() ([]*model.Calendar, error) {
	rows, err := f.db.Query(`
SELECT service_id, start_date, end_date, monday, tuesday, wednesday, thursday, friday, saturday, sunday
FROM calendar`)
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

func (f *SQLiteFeedReader) CalendarDates() ([]*model.CalendarDate, error) {
	rows, err := f.db.Query(`
SELECT service_id, date, exception_type
FROM calendar_dates`)
	if err != nil {
		return nil, fmt.Errorf("querying calendar dates: %w", err)
	}
	defer rows.Close()

	return scanCalendarDates(rows)
}

func (f *SQLiteFeedReader) CalendarDatesByService(serviceID string) ([]*model.CalendarDate, error) {
	rows, err := f.db.Query(`
SELECT service_id, date, exception_type
FROM calendar_dates
WHERE service_id = ?
ORDER BY date`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("querying calendar dates: %w", err)
	}
	defer rows.Close()

	return scanCalendarDates(rows)
}

func scanCalendarDates(rows *sql.Rows) ([]*model.CalendarDate, error) {
	calendarDates := []*model.CalendarDate{}
	for rows.Next() {
		cd := &model.CalendarDate{}
		err := rows.Scan(
			&cd.ServiceID,
			&cd.Date,
			&cd.ExceptionType,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning calendar date: %w", err)
		}
		calendarDates = append(calendarDates, cd)
	}

	return calendarDates, nil
}
