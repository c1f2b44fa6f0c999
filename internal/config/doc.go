// Package config loads the dashboard configuration.
//
// Values are resolved in increasing order of precedence:
//
//	1. Default()
//	2. a YAML file ($SALES_CONFIG, ./config.yaml or ./configs/config.yaml)
//	3. SALES_* environment variables
//
// The two options that matter to the sales pipeline are the input table
// location and its text encoding:
//
//	SALES_DATA_PATH=data/supermarket_sales.csv
//	SALES_DATA_ENCODING=latin1
//
// Encoding names follow the WHATWG encoding labels (utf-8, latin1,
// iso-8859-15, windows-1252, ...).
package config
