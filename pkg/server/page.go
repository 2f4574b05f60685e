package server

import "html/template"

type pageData struct {
	Title      string
	Welcome    string
	SessionID  string
	Started    bool
	MicHidden  bool
	SendHidden bool
	Transcript template.HTML
	Sidebar    template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap-icons@1.11.3/font/bootstrap-icons.min.css">
<style>
  body { background: #f7f7f9; height: 100vh; }
  .container { max-width: 900px; height: 100vh; display: flex; flex-direction: column; justify-content: center; }
  .container.chat-started { justify-content: flex-start; }
  #welcome h1 { text-align: center; font-weight: 600; margin-bottom: 24px; }
  #chat-interface { flex: 1; overflow: hidden; display: flex; flex-direction: column; padding-top: 16px; }
  .chat-messages { flex: 1; overflow-y: auto; display: flex; flex-direction: column; gap: 12px; padding: 8px; }
  .message { display: flex; gap: 8px; max-width: 80%; }
  .message.user { flex-direction: row-reverse; }
  .message-content { padding: 10px 14px; border-radius: 12px; background: #fff; box-shadow: 0 1px 2px rgba(0,0,0,0.08); }
  .message.user .message-content { background: #d1e7ff; white-space: pre-wrap; }
  .message-icon { font-size: 1.3em; }
  .input-area { display: flex; gap: 8px; padding: 16px 0; }
  #chatbox { flex: 1; }
  #sidebar { position: fixed; top: 0; right: 0; width: 320px; height: 100vh; overflow-y: auto; background: #fff; border-left: 1px solid #ddd; padding: 16px; }
  .notif-username { font-weight: bold; }
  .empty-message { color: #6c757d; }
</style>
</head>
<body>
<div class="container{{if .Started}} chat-started{{end}}">
  <section id="welcome"{{if .Started}} hidden{{end}}>
    <h1>{{.Welcome}}</h1>
  </section>
  <div id="chat-interface"{{if not .Started}} hidden{{end}}>
    <div id="chat-messages" class="chat-messages">{{.Transcript}}</div>
  </div>
  <div class="input-area">
    <input type="text" id="chatbox" class="form-control" placeholder="Type a message..." autocomplete="off">
    <button id="micbtn" class="btn btn-outline-secondary"{{if .MicHidden}} hidden{{end}}><i class="bi bi-mic"></i></button>
    <button id="sendbtn" class="btn btn-primary"{{if .SendHidden}} hidden{{end}}><i class="bi bi-send"></i></button>
    <button id="chat-sidebar-btn" class="btn btn-outline-secondary"><i class="bi bi-bell"></i></button>
  </div>
</div>
<aside id="sidebar" hidden>
  <h5>Notifications</h5>
  <div id="notify-container">{{.Sidebar}}</div>
</aside>
<script>
(function () {
  const sid = {{.SessionID}};
  const box = document.getElementById('chatbox');
  const mic = document.getElementById('micbtn');
  const send = document.getElementById('sendbtn');
  const sidebar = document.getElementById('sidebar');

  function api(path, body) {
    return fetch('/api/' + sid + path, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(body || {})
    }).catch(function (err) { console.error('request failed:', err); });
  }

  function apply(ev) {
    switch (ev.type) {
      case 'view':
        if (ev.started) {
          document.querySelector('.container').classList.add('chat-started');
          document.getElementById('welcome').hidden = true;
          document.getElementById('chat-interface').hidden = false;
        }
        break;
      case 'append': {
        const target = document.getElementById(ev.target);
        target.insertAdjacentHTML('beforeend', ev.html);
        if (ev.scroll) target.scrollTop = target.scrollHeight;
        break;
      }
      case 'input':
        box.value = '';
        break;
      case 'buttons':
        mic.hidden = !ev.buttons.mic;
        send.hidden = !ev.buttons.send;
        break;
      case 'panel': {
        const el = document.getElementById(ev.target);
        if (el) el.outerHTML = ev.html;
        break;
      }
      case 'notifications':
        document.getElementById(ev.target).innerHTML = ev.html;
        break;
    }
  }

  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/ws/' + sid);
  ws.onmessage = function (e) { apply(JSON.parse(e.data)); };
  ws.onclose = function () { console.warn('session closed, reload to start a new one'); };

  function submit() { api('/send', { text: box.value }); }

  box.addEventListener('keyup', function (e) {
    if (e.key !== 'Enter') api('/input', { text: box.value });
  });
  box.addEventListener('keypress', function (e) {
    if (e.key === 'Enter') submit();
  });
  send.addEventListener('click', submit);

  document.getElementById('chat-sidebar-btn').addEventListener('click', function () {
    sidebar.hidden = !sidebar.hidden;
    if (!sidebar.hidden) api('/sidebar');
  });

  document.addEventListener('click', function (e) {
    const header = e.target.closest('[data-toggle]');
    if (header) api('/panels/' + encodeURIComponent(header.dataset.toggle) + '/toggle');
  });
})();
</script>
</body>
</html>
`
