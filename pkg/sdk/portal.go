package sdk

import "fmt"

func (c *Client) Status() (*StatusSnapshot, error) {
	var snapshot StatusSnapshot
	err := c.get("/status", &snapshot)
	return &snapshot, err
}

func (c *Client) PerformAction(action string) (*StatusSnapshot, error) {
	payload := map[string]string{"action": action}
	var snapshot StatusSnapshot
	if err := c.post("/servers/action", payload, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) SendCommand(command string) error {
	payload := map[string]string{"command": command}
	return c.post("/servers/command", payload, nil)
}

func (c *Client) Console(lines int) ([]string, error) {
	var response struct {
		Lines []string `json:"lines"`
	}
	err := c.get(fmt.Sprintf("/servers/console?lines=%d", lines), &response)
	return response.Lines, err
}

func (c *Client) GetConfig() (*ConfigResponse, error) {
	var response ConfigResponse
	err := c.get("/config", &response)
	return &response, err
}

func (c *Client) ListNotifications() ([]Notification, error) {
	var notifications []Notification
	err := c.get("/notifications", &notifications)
	return notifications, err
}

func (c *Client) ListRoadmap() ([]RoadmapItem, error) {
	var items []RoadmapItem
	err := c.get("/roadmap", &items)
	return items, err
}

func (c *Client) UpdateConfig(patch map[string]any) error {
	return c.patch("/admin/config", patch)
}

func (c *Client) SetMasterKey(tier, key string) error {
	payload := map[string]string{"key": key}
	return c.put("/admin/mcss-key/"+tier, payload)
}

func (c *Client) CreateNotification(title, body, level string) (*Notification, error) {
	payload := map[string]string{
		"title": title,
		"body":  body,
		"level": level,
	}
	var created Notification
	if err := c.post("/admin/notifications", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteNotification(id string) error {
	return c.delete("/admin/notifications/" + id)
}

func (c *Client) SystemStats() (map[string]any, error) {
	var stats map[string]any
	err := c.get("/admin/system", &stats)
	return stats, err
}
