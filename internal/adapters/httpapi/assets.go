package httpapi

const panelCSS = `
.toast-stack{position:fixed;top:1rem;right:1rem;z-index:1100;display:flex;flex-direction:column;gap:.5rem;min-width:18rem}
.toast-item{margin:0;box-shadow:0 .25rem .75rem rgba(0,0,0,.15)}
.panel-backdrop{position:fixed;inset:0;background:rgba(0,0,0,.45);display:flex;align-items:center;justify-content:center;z-index:1050}
.panel-modal{width:min(32rem,92vw)}
`

// panelJS relaie les events SSE vers htmx et gère la popup d'autorisation.
// La fenêtre est pré-ouverte au clic pour ne pas être bloquée par le navigateur,
// puis redirigée quand le serveur publie panel.window.open.
const panelJS = `
(function () {
  var pending = null;
  var windows = {};
  var regions = {config: '/panel/config', status: '/panel/status', history: '/panel/history?nav=refresh'};

  function report(id, status) {
    fetch('/panel/auth/window/' + encodeURIComponent(id), {
      method: 'POST',
      credentials: 'same-origin',
      headers: {'Content-Type': 'application/x-www-form-urlencoded'},
      body: 'status=' + encodeURIComponent(status)
    });
  }

  function watch(id, win) {
    var timer = setInterval(function () {
      if (win.closed) {
        clearInterval(timer);
        if (windows[id]) {
          delete windows[id];
          report(id, 'closed');
        }
      }
    }, 1000);
  }

  function arm(el) {
    var ms = parseInt(el.getAttribute('data-dismiss-after'), 10);
    if (!ms || el.getAttribute('data-armed')) return;
    el.setAttribute('data-armed', '1');
    setTimeout(function () { el.remove(); }, ms);
  }

  document.body.addEventListener('click', function (e) {
    var btn = e.target.closest('[data-auth-start]');
    if (!btn) return;
    if (!pending || pending.closed) {
      pending = window.open('about:blank', 'trakt-auth', 'width=600,height=750');
    }
  }, true);

  htmx.onLoad(function (root) {
    if (root.matches && root.matches('[data-dismiss-after]')) arm(root);
    if (root.querySelectorAll) root.querySelectorAll('[data-dismiss-after]').forEach(arm);
  });

  document.body.addEventListener('htmx:beforeSwap', function (e) {
    var xhr = e.detail.xhr;
    if (xhr && xhr.status >= 400 && xhr.getResponseHeader('X-Panel-Error')) {
      e.detail.shouldSwap = true;
      e.detail.isError = false;
    }
  });

  document.body.addEventListener('htmx:afterRequest', function (e) {
    var el = e.detail.elt;
    if (el && el.classList && el.classList.contains('followup')) el.remove();
  });

  document.body.addEventListener('htmx:afterSwap', function () {
    var modal = document.getElementById('auth-modal');
    if (!pending || !modal) return;
    var step = modal.getAttribute('data-step');
    if (step === null || step === 'error') {
      pending.close();
      pending = null;
    }
  });

  var source = new EventSource('/panel/events');

  source.addEventListener('panel.window.open', function (e) {
    var d = JSON.parse(e.data);
    var win = pending;
    pending = null;
    if (win && !win.closed) {
      win.location.href = d.url;
    } else {
      win = window.open(d.url, 'trakt-auth', 'width=600,height=750');
    }
    if (!win) {
      report(d.id, 'blocked');
      return;
    }
    windows[d.id] = win;
    report(d.id, 'opened');
    watch(d.id, win);
  });

  source.addEventListener('panel.window.close', function (e) {
    var d = JSON.parse(e.data);
    var win = windows[d.id];
    delete windows[d.id];
    if (win && !win.closed) win.close();
  });

  source.addEventListener('panel.auth', function () {
    htmx.ajax('GET', '/panel/auth', {target: '#auth-modal', swap: 'outerHTML'});
  });

  source.addEventListener('panel.reload', function (e) {
    var d = JSON.parse(e.data);
    var url = regions[d.region];
    if (!url) return;
    setTimeout(function () {
      htmx.ajax('GET', url, {target: '#region-' + d.region, swap: 'outerHTML'});
    }, Math.round((d.after || 0) / 1e6));
  });

  source.addEventListener('panel.toast', function (e) {
    var d = JSON.parse(e.data);
    var el = document.createElement('div');
    el.className = 'toast-item alert alert-' + d.level;
    el.setAttribute('role', 'status');
    el.setAttribute('data-dismiss-after', String(Math.round((d.ttl || 3e9) / 1e6)));
    el.textContent = d.message;
    document.getElementById('toasts').appendChild(el);
    arm(el);
  });
})();
`
