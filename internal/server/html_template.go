package server

import (
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

// pageData contains all data needed for the review page template.
type pageData struct {
	ReviewID       string
	Title          string
	PollIntervalMs int
}

func (s *Server) reviewPage(c echo.Context) error {
	sess := s.session(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Review not found")
	}

	rev := sess.store.Review()
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return pageTemplate.Execute(c.Response(), pageData{
		ReviewID:       rev.ID,
		Title:          rev.Title,
		PollIntervalMs: s.opts.PollIntervalMs,
	})
}

var pageTemplate = template.Must(template.New("review").Parse(reviewPageHTML))

const reviewPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Review: {{.Title}}</title>
<script src="https://cdn.jsdelivr.net/npm/markdown-it@14/dist/markdown-it.min.js"></script>
<style>
:root {
  --bg: #0d1117; --bg-panel: #161b22; --bg-line: #1c2129;
  --border: #30363d; --text: #e6edf3; --text-dim: #8b949e;
  --accent: #2f81f7; --green: #3fb950; --red: #f85149; --yellow: #d29922;
}
* { box-sizing: border-box; margin: 0; }
body { background: var(--bg); color: var(--text); font: 14px/1.5 -apple-system, "Segoe UI", sans-serif; }
.header { display: flex; justify-content: space-between; align-items: center; padding: 12px 20px; border-bottom: 1px solid var(--border); background: var(--bg-panel); }
.header h1 { font-size: 16px; }
.badge { display: inline-block; padding: 2px 10px; border-radius: 12px; font-size: 12px; margin-left: 8px; border: 1px solid var(--border); }
.badge.pending_review { color: var(--yellow); }
.badge.approved { color: var(--green); }
.badge.changes_requested { color: var(--red); }
.layout { display: flex; height: calc(100vh - 110px); }
.doc-panel { flex: 1 1 65%; overflow-y: auto; border-right: 1px solid var(--border); }
.doc-toolbar { position: sticky; top: 0; background: var(--bg-panel); padding: 8px 12px; border-bottom: 1px solid var(--border); z-index: 2; }
.threads-panel { flex: 1 1 35%; overflow-y: auto; padding: 12px; }
.doc-line { display: flex; cursor: pointer; }
.doc-line:hover { background: var(--bg-line); }
.doc-line.selected { background: #1f3a5f; }
.doc-line.has-comment { border-left: 3px solid var(--yellow); }
.line-num { width: 48px; text-align: right; padding-right: 12px; color: var(--text-dim); user-select: none; flex-shrink: 0; font-family: monospace; }
.line-text { white-space: pre-wrap; font-family: monospace; word-break: break-word; }
.preview { padding: 16px 24px; max-width: 860px; }
.preview [data-line-start] { border-left: 3px solid transparent; padding-left: 8px; cursor: pointer; }
.preview [data-line-start].selected { background: #1f3a5f; }
.preview [data-line-start].has-comment { border-left-color: var(--yellow); }
.preview h1, .preview h2, .preview h3, .preview p, .preview pre, .preview ul, .preview ol, .preview blockquote, .preview table { margin: 10px 0; }
.preview pre { background: var(--bg-panel); padding: 10px; overflow-x: auto; border-radius: 6px; }
.preview code { font-family: monospace; }
button { background: var(--bg-panel); color: var(--text); border: 1px solid var(--border); border-radius: 6px; padding: 5px 12px; cursor: pointer; font-size: 13px; }
button:hover { border-color: var(--text-dim); }
button:disabled { opacity: 0.5; cursor: wait; }
button.active { border-color: var(--accent); color: var(--accent); }
button.primary { background: var(--accent); border-color: var(--accent); color: #fff; }
button.approve { background: var(--green); border-color: var(--green); color: #fff; }
button.reject { background: var(--red); border-color: var(--red); color: #fff; }
.composer { margin: 6px 0 6px 48px; padding: 10px; background: var(--bg-panel); border: 1px solid var(--border); border-radius: 6px; }
.composer textarea, .reply-input { width: 100%; background: var(--bg); color: var(--text); border: 1px solid var(--border); border-radius: 6px; padding: 8px; font: inherit; resize: vertical; }
.composer .actions { display: flex; gap: 8px; justify-content: flex-end; margin-top: 8px; }
.thread { border: 1px solid var(--border); border-radius: 6px; margin-bottom: 10px; background: var(--bg-panel); }
.thread.resolved { opacity: 0.65; }
.thread-head { display: flex; justify-content: space-between; padding: 8px 10px; border-bottom: 1px solid var(--border); font-size: 12px; color: var(--text-dim); }
.thread-lines { color: var(--accent); cursor: pointer; }
.thread-body { padding: 10px; white-space: pre-wrap; }
.reply { padding: 8px 10px; border-top: 1px solid var(--border); white-space: pre-wrap; }
.reply .meta, .thread-body .meta { font-size: 12px; color: var(--text-dim); margin-bottom: 4px; }
.thread-foot { display: flex; gap: 8px; padding: 8px 10px; border-top: 1px solid var(--border); }
.thread-foot .reply-input { flex: 1; }
.footer { display: flex; justify-content: flex-end; gap: 10px; padding: 12px 20px; border-top: 1px solid var(--border); background: var(--bg-panel); }
.footer.hidden { display: none; }
.filters { display: flex; gap: 6px; margin-bottom: 12px; }
.toast { position: fixed; bottom: 20px; left: 50%; transform: translateX(-50%); background: var(--bg-panel); border: 1px solid var(--border); border-radius: 6px; padding: 10px 18px; z-index: 10; transition: opacity .2s; }
.toast.error { border-color: var(--red); }
.toast.hiding { opacity: 0; }
.empty { color: var(--text-dim); text-align: center; padding: 30px 0; }
</style>
</head>
<body>
<div id="app"></div>
<script>
const REVIEW_ID = {{.ReviewID}};
const POLL_INTERVAL_MS = {{.PollIntervalMs}};

const state = {
  review: null,
  doc: null,
  threads: [],
  selected: null,
  filter: "all",
  viewMode: "source",
};

let md = null;
let isDragging = false;
let dragStart = null;

function initMarkdown() {
  if (!window.markdownit) return;
  md = window.markdownit({ html: false, breaks: true, linkify: true });

  // Tag block elements with their source-line range so preview
  // selections map back to line numbers.
  function tagLines(tokens, idx, options, env, slf) {
    if (tokens[idx].map) {
      tokens[idx].attrSet("data-line-start", String(tokens[idx].map[0] + 1));
      tokens[idx].attrSet("data-line-end", String(tokens[idx].map[1]));
    }
    return slf.renderToken(tokens, idx, options, env, slf);
  }
  ["paragraph_open", "heading_open", "list_item_open", "table_open", "blockquote_open"].forEach(
    (rule) => { md.renderer.rules[rule] = tagLines; },
  );
  md.renderer.rules.fence = function (tokens, idx) {
    const t = tokens[idx];
    const attrs = t.map
      ? ' data-line-start="' + (t.map[0] + 1) + '" data-line-end="' + t.map[1] + '"'
      : "";
    return "<pre" + attrs + "><code>" + md.utils.escapeHtml(t.content) + "</code></pre>";
  };
}

async function api(path, opts) {
  const res = await fetch("/api/reviews/" + REVIEW_ID + path, opts);
  if (!res.ok) throw new Error("Request failed: " + res.status);
  return res.json();
}

async function loadAll() {
  const [review, doc, threads] = await Promise.all([
    api(""), api("/document"), api("/threads"),
  ]);
  state.review = review;
  state.doc = doc;
  state.threads = threads.threads || [];
}

function setupPolling() {
  setInterval(async () => {
    if (document.hidden) return;
    try {
      const [doc, threads] = await Promise.all([api("/document"), api("/threads")]);
      if (state.doc && doc.hash !== state.doc.hash) {
        state.doc = doc;
        renderDocument();
        toast("Document updated");
      }
      state.threads = threads.threads || [];
      renderThreads();
    } catch (err) {
      console.error("poll failed", err);
    }
  }, POLL_INTERVAL_MS);
}

function render() {
  const statusLabel = state.review.status.replace(/_/g, " ");
  document.getElementById("app").innerHTML =
    '<div class="header">' +
      '<h1>' + esc(state.review.title) + '</h1>' +
      '<div>' +
        '<span class="badge">Round ' + state.review.currentRound + '</span>' +
        '<span class="badge ' + state.review.status + '">' + esc(statusLabel) + '</span>' +
      '</div>' +
    '</div>' +
    '<div class="layout">' +
      '<div class="doc-panel">' +
        '<div class="doc-toolbar">' +
          '<button id="btn-source" onclick="setViewMode(\'source\')">Source</button> ' +
          '<button id="btn-preview" onclick="setViewMode(\'preview\')">Preview</button>' +
        '</div>' +
        '<div id="docViewer"></div>' +
      '</div>' +
      '<div class="threads-panel">' +
        '<div class="filters">' +
          '<button id="f-all" onclick="setFilter(\'all\')">All</button>' +
          '<button id="f-pending" onclick="setFilter(\'pending\')">Pending</button>' +
          '<button id="f-resolved" onclick="setFilter(\'resolved\')">Resolved</button>' +
        '</div>' +
        '<div id="threadsList"></div>' +
      '</div>' +
    '</div>' +
    '<div class="footer" id="footer">' +
      '<button class="reject" onclick="submitDecision(\'request_changes\', this)">Request Changes</button>' +
      '<button class="approve" onclick="submitDecision(\'approve\', this)">Approve</button>' +
    '</div>';

  renderDocument();
  renderThreads();
}

function commentedLines() {
  const lines = new Set();
  state.threads.forEach((t) => {
    for (let i = t.lineStart; i <= t.lineEnd; i++) lines.add(i);
  });
  return lines;
}

function renderDocument() {
  const viewer = document.getElementById("docViewer");
  if (!viewer || !state.doc) return;
  document.getElementById("btn-source").classList.toggle("active", state.viewMode === "source");
  document.getElementById("btn-preview").classList.toggle("active", state.viewMode === "preview");
  if (state.viewMode === "preview") renderPreview(viewer);
  else renderSource(viewer);
}

function renderSource(viewer) {
  const marked = commentedLines();
  viewer.innerHTML = state.doc.lines.map((line, i) => {
    const n = i + 1;
    const cls = ["doc-line"];
    if (marked.has(n)) cls.push("has-comment");
    if (state.selected && n >= state.selected.start && n <= state.selected.end) cls.push("selected");
    return '<div class="' + cls.join(" ") + '" data-line="' + n + '"' +
      ' onmousedown="lineDown(event,' + n + ')" onmouseenter="lineEnter(' + n + ')">' +
      '<span class="line-num">' + n + '</span>' +
      '<span class="line-text">' + (esc(line) || " ") + '</span></div>';
  }).join("");
}

function renderPreview(viewer) {
  if (!md) {
    viewer.innerHTML = '<div class="empty">markdown-it failed to load</div>';
    return;
  }
  viewer.innerHTML = '<div class="preview">' + md.render(state.doc.lines.join("\n")) + '</div>';
  applyPreviewMarks();
  viewer.querySelectorAll("[data-line-start]").forEach((el) => {
    el.addEventListener("mousedown", (e) => {
      e.preventDefault();
      const start = parseInt(el.dataset.lineStart, 10);
      const end = parseInt(el.dataset.lineEnd, 10);
      if (isNaN(start) || isNaN(end)) return;
      state.selected = { start: start, end: end };
      applyPreviewMarks();
      openComposerAfter(el);
    });
  });
}

function applyPreviewMarks() {
  const marked = commentedLines();
  document.querySelectorAll(".preview [data-line-start]").forEach((el) => {
    const start = parseInt(el.dataset.lineStart, 10);
    const end = parseInt(el.dataset.lineEnd, 10);
    let has = false;
    for (let i = start; i <= end; i++) if (marked.has(i)) { has = true; break; }
    el.classList.toggle("has-comment", has);
    el.classList.toggle("selected",
      !!state.selected && start <= state.selected.end && end >= state.selected.start);
  });
}

function setViewMode(mode) {
  state.viewMode = mode;
  clearSelection();
  renderDocument();
}

// Source-mode selection: click, shift-click to extend, or drag.
function lineDown(event, n) {
  event.preventDefault();
  if (event.shiftKey && state.selected) {
    state.selected = {
      start: Math.min(state.selected.start, n),
      end: Math.max(state.selected.end, n),
    };
    updateSelectionStyles();
    openComposer();
    return;
  }
  isDragging = true;
  dragStart = n;
  state.selected = { start: n, end: n };
  removeComposer();
  updateSelectionStyles();
}

function lineEnter(n) {
  if (!isDragging || dragStart === null) return;
  state.selected = { start: Math.min(dragStart, n), end: Math.max(dragStart, n) };
  updateSelectionStyles();
}

document.addEventListener("mouseup", () => {
  if (!isDragging) return;
  isDragging = false;
  dragStart = null;
  if (state.selected) openComposer();
});

document.addEventListener("keydown", (e) => {
  if (e.key === "Escape") clearSelection();
});

function updateSelectionStyles() {
  document.querySelectorAll(".doc-line").forEach((el) => {
    const n = parseInt(el.dataset.line, 10);
    el.classList.toggle("selected",
      !!state.selected && n >= state.selected.start && n <= state.selected.end);
  });
}

function composerHTML() {
  const label = state.selected.start === state.selected.end
    ? "Line " + state.selected.start
    : "Lines " + state.selected.start + "-" + state.selected.end;
  return '<div class="composer" id="composer">' +
    '<div class="meta">' + label + '</div>' +
    '<textarea id="composerBody" rows="3" placeholder="Leave a comment..."></textarea>' +
    '<div class="actions">' +
      '<button onclick="clearSelection()">Cancel</button>' +
      '<button class="primary" id="composerSubmit" onclick="submitComment(this)">Add Comment</button>' +
    '</div></div>';
}

// The composer is anchored after the last selected line.
function openComposer() {
  removeComposer();
  if (!state.selected) return;
  const anchor = document.querySelector('.doc-line[data-line="' + state.selected.end + '"]');
  if (!anchor) return;
  anchor.insertAdjacentHTML("afterend", composerHTML());
  focusComposer();
}

function openComposerAfter(el) {
  removeComposer();
  if (!state.selected) return;
  el.insertAdjacentHTML("afterend", composerHTML());
  focusComposer();
}

function focusComposer() {
  const box = document.getElementById("composerBody");
  if (!box) return;
  box.focus();
  box.addEventListener("keydown", (e) => {
    if ((e.ctrlKey || e.metaKey) && e.key === "Enter") submitComment(document.getElementById("composerSubmit"));
  });
}

function removeComposer() {
  const el = document.getElementById("composer");
  if (el) el.remove();
}

function clearSelection() {
  state.selected = null;
  isDragging = false;
  dragStart = null;
  removeComposer();
  if (state.viewMode === "preview") applyPreviewMarks();
  else updateSelectionStyles();
}

async function submitComment(btn) {
  const body = document.getElementById("composerBody")?.value?.trim();
  if (!body || !state.selected) {
    toast("Please enter a comment", "error");
    return;
  }
  btn.disabled = true;
  try {
    const thread = await api("/threads", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({
        lineStart: state.selected.start,
        lineEnd: state.selected.end,
        body: body,
      }),
    });
    state.threads.push(thread);
    clearSelection();
    renderDocument();
    renderThreads();
    toast("Comment added");
  } catch (err) {
    console.error(err);
    toast("Failed to add comment", "error");
  } finally {
    btn.disabled = false;
  }
}

function renderThreads() {
  const list = document.getElementById("threadsList");
  if (!list) return;

  ["all", "pending", "resolved"].forEach((f) => {
    document.getElementById("f-" + f).classList.toggle("active", state.filter === f);
  });

  let threads = state.threads;
  if (state.filter === "pending") threads = threads.filter((t) => !t.resolved);
  else if (state.filter === "resolved") threads = threads.filter((t) => t.resolved);
  threads = threads.slice().sort((a, b) => a.lineStart - b.lineStart);

  if (threads.length === 0) {
    list.innerHTML = '<div class="empty">No ' + (state.filter === "all" ? "" : state.filter + " ") + 'comments</div>';
    return;
  }

  list.innerHTML = threads.map((t) => {
    const range = t.lineStart === t.lineEnd
      ? "Line " + t.lineStart
      : "Lines " + t.lineStart + "-" + t.lineEnd;
    const replies = (t.replies || []).map((r) =>
      '<div class="reply"><div class="meta">' + authorLabel(r.author) + " · " + timeAgo(r.createdAt) + '</div>' +
      esc(r.body) + '</div>').join("");
    return '<div class="thread' + (t.resolved ? " resolved" : "") + '">' +
      '<div class="thread-head">' +
        '<span class="thread-lines" onclick="scrollToLine(' + t.lineStart + ')">' + range + '</span>' +
        (t.resolved ? '<span>Resolved</span>' : "") +
      '</div>' +
      '<div class="thread-body"><div class="meta">' + authorLabel(t.author) + " · " + timeAgo(t.createdAt) + '</div>' +
        esc(t.body) + '</div>' +
      replies +
      '<div class="thread-foot">' +
        '<input class="reply-input" id="reply-' + t.id + '" placeholder="Write a reply..."' +
          ' onkeydown="replyKey(event,\'' + t.id + '\')">' +
        '<button id="reply-btn-' + t.id + '" onclick="submitReply(\'' + t.id + '\')">Reply</button>' +
        (t.resolved
          ? '<button onclick="setResolved(\'' + t.id + '\', false, this)">Unresolve</button>'
          : '<button onclick="setResolved(\'' + t.id + '\', true, this)">Resolve</button>') +
      '</div></div>';
  }).join("");

  const footer = document.getElementById("footer");
  if (footer) footer.classList.toggle("hidden", state.review.status !== "pending_review");
}

function replyKey(event, id) {
  if (event.key === "Enter" && !event.shiftKey) {
    event.preventDefault();
    submitReply(id);
  }
}

async function submitReply(id) {
  const input = document.getElementById("reply-" + id);
  const body = input?.value?.trim();
  if (!body) return;
  const btn = document.getElementById("reply-btn-" + id);
  btn.disabled = true;
  try {
    const reply = await api("/threads/" + id + "/replies", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ body: body }),
    });
    const thread = state.threads.find((t) => t.id === id);
    if (thread) (thread.replies = thread.replies || []).push(reply);
    renderThreads();
    toast("Reply added");
  } catch (err) {
    console.error(err);
    toast("Failed to add reply", "error");
  } finally {
    btn.disabled = false;
  }
}

async function setResolved(id, resolved, btn) {
  btn.disabled = true;
  try {
    const updated = await api("/threads/" + id, {
      method: "PATCH",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ resolved: resolved }),
    });
    const idx = state.threads.findIndex((t) => t.id === id);
    if (idx >= 0) state.threads[idx] = updated;
    renderThreads();
    toast(resolved ? "Comment resolved" : "Comment unresolved");
  } catch (err) {
    console.error(err);
    toast("Failed to update comment", "error");
  } finally {
    btn.disabled = false;
  }
}

async function submitDecision(decision, btn) {
  const prompt = decision === "approve"
    ? "Approve this document?"
    : "Request changes on this document?";
  if (!confirm(prompt)) return;
  btn.disabled = true;
  try {
    const result = await api("/submit", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ decision: decision }),
    });
    state.review.status = result.status;
    render();
    toast(decision === "approve" ? "Review approved" : "Changes requested");
  } catch (err) {
    console.error(err);
    toast("Failed to submit review", "error");
  } finally {
    btn.disabled = false;
  }
}

function setFilter(filter) {
  state.filter = filter;
  renderThreads();
}

function scrollToLine(n) {
  const el = state.viewMode === "preview"
    ? findPreviewBlock(n)
    : document.querySelector('.doc-line[data-line="' + n + '"]');
  if (el) el.scrollIntoView({ behavior: "smooth", block: "center" });
}

function findPreviewBlock(n) {
  let target = null;
  document.querySelectorAll(".preview [data-line-start]").forEach((el) => {
    const start = parseInt(el.dataset.lineStart, 10);
    const end = parseInt(el.dataset.lineEnd, 10);
    if (n >= start && n <= end) target = el;
  });
  return target;
}

function authorLabel(author) {
  return author === "agent" ? "Agent" : "Human";
}

function timeAgo(iso) {
  const diff = Date.now() - new Date(iso).getTime();
  const mins = Math.floor(diff / 60000);
  if (mins < 1) return "just now";
  if (mins < 60) return mins + "m ago";
  const hours = Math.floor(mins / 60);
  if (hours < 24) return hours + "h ago";
  const days = Math.floor(hours / 24);
  if (days < 7) return days + "d ago";
  return new Date(iso).toLocaleDateString();
}

function esc(str) {
  if (str === null || str === undefined) return "";
  const div = document.createElement("div");
  div.textContent = str;
  return div.innerHTML;
}

function toast(message, type) {
  const existing = document.querySelector(".toast");
  if (existing) existing.remove();
  const el = document.createElement("div");
  el.className = "toast" + (type === "error" ? " error" : "");
  el.textContent = message;
  document.body.appendChild(el);
  setTimeout(() => {
    el.classList.add("hiding");
    setTimeout(() => el.remove(), 200);
  }, 3000);
}

async function init() {
  initMarkdown();
  try {
    await loadAll();
  } catch (err) {
    document.getElementById("app").innerHTML = '<div class="empty">Failed to load review</div>';
    return;
  }
  render();
  setupPolling();
}

init();
</script>
</body>
</html>
`
