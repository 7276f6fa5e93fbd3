package sdk

func (c *Client) Login(email, password string) (*Session, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	var session Session
	if err := c.post("/auth/login", payload, &session); err != nil {
		return nil, err
	}
	c.token = session.Token
	return &session, nil
}

func (c *Client) Signup(email, password, displayName string) (*Session, error) {
	payload := map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	}
	var session Session
	if err := c.post("/auth/signup", payload, &session); err != nil {
		return nil, err
	}
	c.token = session.Token
	return &session, nil
}

func (c *Client) Logout() error {
	if err := c.post("/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) Me() (*Profile, error) {
	var profile Profile
	err := c.get("/auth/me", &profile)
	return &profile, err
}

func (c *Client) UpdatePassword(currentPassword, newPassword string) error {
	payload := map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}
	return c.put("/auth/password", payload)
}
