package selenium

// Capabilities returns the W3C new-session request body for c.
func Capabilities(c Config) map[string]interface{} {
	var args []string
	match := map[string]interface{}{}
	switch c.Browser {
	case Firefox:
		match["browserName"] = "firefox"
		if c.Headless {
			args = append(args, "-headless")
		}
		match["moz:firefoxOptions"] = map[string]interface{}{"args": nonNil(args)}
	case Edge:
		match["browserName"] = "MicrosoftEdge"
		if c.Headless {
			args = append(args, "--headless=new", "--disable-gpu")
		}
		match["ms:edgeOptions"] = map[string]interface{}{"args": nonNil(args)}
	default:
		match["browserName"] = "chrome"
		if c.Headless {
			args = append(args, "--headless=new", "--disable-gpu")
		}
		match["goog:chromeOptions"] = map[string]interface{}{"args": nonNil(args)}
	}
	return map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": match,
		},
	}
}

func nonNil(args []string) []string {
	if args == nil {
		return []string{}
	}
	return args
}

// driverExecutable is the default local driver for each browser.
func driverExecutable(b Browser) string {
	switch b {
	case Firefox:
		return "geckodriver"
	case Edge:
		return "msedgedriver"
	default:
		return "chromedriver"
	}
}
