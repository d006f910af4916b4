package mongodb

import (
	"fmt"
	"net/url"
)

// uriFromConfig builds the MongoDB URI and database name from a connection's
// decrypted config map.
func uriFromConfig(config map[string]any) (uri, database string, err error) {
	database, _ = config["database"].(string)
	if database == "" {
		return "", "", fmt.Errorf("database is required")
	}

	if cs, ok := config["connection_string"].(string); ok && cs != "" {
		return cs, database, nil
	}

	host, _ := config["host"].(string)
	if host == "" {
		return "", "", fmt.Errorf("host or connection_string is required")
	}

	u := &url.URL{
		Scheme: "mongodb",
		Host:   host,
		Path:   "/" + database,
	}

	username, _ := config["username"].(string)
	password, _ := config["password"].(string)
	if username != "" {
		u.User = url.UserPassword(username, password)
	}

	if srv, ok := config["srv"].(bool); ok && srv {
		u.Scheme = "mongodb+srv"
	}

	return u.String(), database, nil
}
