package host

// Page scripts. Each is a function expression evaluated by rod with JSON
// arguments; promises are awaited. Clone containers are tagged with
// data-snap2pdf-clone=<token> and per-clone state lives in
// window.__snap2pdf[<token>].

const fontsReadyJS = `() => document.fonts ? document.fonts.ready.then(() => true) : true`

// cloneJS validates the source before touching the document: any
// {error: "unavailable"} result means no mutation happened.
const cloneJS = `(selector, fixedW, fixedH, token) => {
  let src;
  try {
    src = document.querySelector(selector);
  } catch (e) {
    return {error: "unavailable", reason: "invalid selector " + selector + ": " + e.message};
  }
  if (!src) return {error: "unavailable", reason: "no element matches " + selector};
  if (!src.isConnected) return {error: "unavailable", reason: "element is detached"};
  const rect = src.getBoundingClientRect();
  if (rect.width === 0 || rect.height === 0) return {error: "unavailable", reason: "element has zero layout area"};

  const copyStyle = (from, to) => {
    const cs = getComputedStyle(from);
    for (let i = 0; i < cs.length; i++) {
      const p = cs[i];
      to.style.setProperty(p, cs.getPropertyValue(p), cs.getPropertyPriority(p));
    }
  };

  const clone = src.cloneNode(true);
  const from = [src, ...src.querySelectorAll("*")];
  const to = [clone, ...clone.querySelectorAll("*")];
  for (let i = 0; i < from.length && i < to.length; i++) {
    if (to[i].style) copyStyle(from[i], to[i]);
    if (from[i] instanceof HTMLCanvasElement && to[i] instanceof HTMLCanvasElement) {
      try {
        to[i].width = from[i].width;
        to[i].height = from[i].height;
        to[i].getContext("2d").drawImage(from[i], 0, 0);
      } catch (e) {}
    }
    if (to[i] instanceof HTMLImageElement) to[i].loading = "eager";
  }

  const s = clone.style;
  s.position = "static";
  s.margin = "0";
  s.transform = "none";
  s.boxSizing = "border-box";
  if (fixedW > 0 && fixedH > 0) {
    s.width = fixedW + "px";
    s.height = fixedH + "px";
    s.minHeight = "0";
    s.maxHeight = "none";
    s.overflow = "hidden";
  } else {
    // offsetWidth is the untransformed border box; SVG roots lack it.
    s.width = (src.offsetWidth || rect.width) + "px";
    s.height = "auto";
    s.maxHeight = "none";
    s.overflow = "visible";
  }

  const root = document.documentElement;
  const top = Math.max(root.scrollHeight, document.body ? document.body.scrollHeight : 0) + 64;
  const box = document.createElement("div");
  box.setAttribute("data-snap2pdf-clone", token);
  box.style.cssText = "position:absolute;left:0;top:" + top + "px;margin:0;padding:0;border:0;" +
    "display:block;width:max-content;pointer-events:none;";
  box.appendChild(clone);
  (document.body || root).appendChild(box);

  const r = clone.getBoundingClientRect();
  return {x: r.left + scrollX, y: r.top + scrollY, width: r.width, height: r.height};
}`

const removeJS = `(token) => {
  document.querySelectorAll('[data-snap2pdf-clone="' + token + '"]').forEach((n) => n.remove());
  if (window.__snap2pdf) delete window.__snap2pdf[token];
  return true;
}`

const countJS = `() => document.querySelectorAll("[data-snap2pdf-clone]").length`

const measureJS = `(token) => {
  const box = document.querySelector('[data-snap2pdf-clone="' + token + '"]');
  if (!box || !box.firstElementChild) return null;
  const r = box.firstElementChild.getBoundingClientRect();
  return {x: r.left + scrollX, y: r.top + scrollY, width: r.width, height: r.height};
}`

// assetsJS registers every image-bearing element of the clone: <img>, SVG
// <image> and CSS background images, the latter two through proxy Image
// objects that load the same URL.
const assetsJS = `(token) => {
  const reg = (window.__snap2pdf = window.__snap2pdf || {});
  const list = [];
  const out = [];
  const state = (img) => !img.complete ? "pending" : (img.naturalWidth > 0 ? "loaded" : "failed");
  const add = (img, src) => { list.push(img); out.push({source: src, state: state(img)}); };
  const proxy = (src) => { const p = new Image(); p.src = src; return p; };

  const box = document.querySelector('[data-snap2pdf-clone="' + token + '"]');
  if (box) {
    box.querySelectorAll("img").forEach((img) => {
      const src = img.currentSrc || img.src;
      if (src) add(img, src);
    });
    box.querySelectorAll("image").forEach((el) => {
      const href = el.href && el.href.baseVal;
      if (href) { const src = new URL(href, document.baseURI).href; add(proxy(src), src); }
    });
    const seen = new Set();
    const re = /url\(\s*(['"]?)(.*?)\1\s*\)/g;
    box.querySelectorAll("*").forEach((el) => {
      const bg = getComputedStyle(el).backgroundImage;
      if (!bg || bg === "none") return;
      for (const m of bg.matchAll(re)) {
        const src = m[2];
        if (!src || seen.has(src)) continue;
        seen.add(src);
        add(proxy(src), src);
      }
    });
  }
  reg[token] = list;
  return out;
}`

const waitJS = `(token, i) => new Promise((resolve) => {
  const img = ((window.__snap2pdf || {})[token] || [])[i];
  if (!img) { resolve("failed"); return; }
  const settle = () => {
    if (img.naturalWidth === 0) { resolve("failed"); return; }
    (img.decode ? img.decode() : Promise.resolve()).then(() => resolve("loaded"), () => resolve("loaded"));
  };
  if (img.complete) { settle(); return; }
  img.addEventListener("load", settle, {once: true});
  img.addEventListener("error", () => resolve("failed"), {once: true});
})`

// taintedJS draws each loaded asset onto a 1x1 canvas and reads it back;
// a SecurityError marks the source as tainting.
const taintedJS = `(token) => {
  const list = (window.__snap2pdf || {})[token] || [];
  const canvas = document.createElement("canvas");
  canvas.width = canvas.height = 1;
  const ctx = canvas.getContext("2d", {willReadFrequently: true});
  const out = [];
  for (const img of list) {
    if (!img.complete || img.naturalWidth === 0) continue;
    try {
      ctx.clearRect(0, 0, 1, 1);
      ctx.drawImage(img, 0, 0, 1, 1);
      ctx.getImageData(0, 0, 1, 1);
    } catch (e) {
      if (e && e.name === "SecurityError") out.push(img.currentSrc || img.src);
    }
  }
  return out;
}`

// reloadJS re-requests the given sources in CORS-anonymous mode and waits
// for each to settle, bounded by timeoutMs. It returns the sources that did
// not load.
const reloadJS = `(token, sources, timeoutMs) => {
  const list = (window.__snap2pdf || {})[token] || [];
  const wanted = new Set(sources);
  const waits = [];
  for (const img of list) {
    const src = img.currentSrc || img.src;
    if (!wanted.has(src)) continue;
    waits.push(new Promise((resolve) => {
      const timer = setTimeout(() => resolve(src), timeoutMs);
      const done = (failed) => { clearTimeout(timer); resolve(failed ? src : null); };
      img.addEventListener("load", () => done(img.naturalWidth === 0), {once: true});
      img.addEventListener("error", () => done(true), {once: true});
      img.crossOrigin = "anonymous";
      img.src = src;
    }));
  }
  return Promise.all(waits).then((res) => res.filter((s) => s !== null));
}`

const backgroundJS = `(token, css) => {
  const box = document.querySelector('[data-snap2pdf-clone="' + token + '"]');
  if (box) box.style.background = css;
  return !!box;
}`
