package writerbackends

import "testing"

func TestParseSFTPTarget(t *testing.T) {
	tgt, err := parseSFTPTarget(map[string]string{
		"host":      "media.example.com",
		"user":      "render",
		"password":  "pw",
		"remoteDir": "/srv/videos",
		"folder":    "campaign",
		"filename":  "run1_out.mp4",
	})
	if err != nil {
		t.Fatalf("parseSFTPTarget failed: %v", err)
	}
	if tgt.addr != "media.example.com:22" {
		t.Errorf("addr = %s", tgt.addr)
	}
	if tgt.remotePath != "/srv/videos/campaign/run1_out.mp4" {
		t.Errorf("remotePath = %s", tgt.remotePath)
	}
	if got := tgt.partialPath(); got != "/srv/videos/campaign/.run1_out.mp4.partial" {
		t.Errorf("partialPath = %s", got)
	}

	tgt, err = parseSFTPTarget(map[string]string{
		"host": "h", "user": "u", "password": "pw", "port": "2222",
		"remotePath": "/explicit/out.mp4", "remoteDir": "/ignored",
	})
	if err != nil {
		t.Fatalf("parseSFTPTarget failed: %v", err)
	}
	if tgt.addr != "h:2222" || tgt.remotePath != "/explicit/out.mp4" {
		t.Errorf("target = %s %s", tgt.addr, tgt.remotePath)
	}
}

func TestParseSFTPTargetRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"no auth":      {"host": "h", "user": "u", "remotePath": "/a.mp4"},
		"no path":      {"host": "h", "user": "u", "password": "pw"},
		"bad host key": {"host": "h", "user": "u", "password": "pw", "remotePath": "/a.mp4", "hostKey": "not a key"},
		"bad key":      {"host": "h", "user": "u", "privateKey": "-----BEGIN nothing", "remotePath": "/a.mp4"},
		"dir only":     {"host": "h", "user": "u", "password": "pw", "remotePath": "/"},
	}
	for name, info := range cases {
		if _, err := parseSFTPTarget(info); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
